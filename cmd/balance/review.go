package main

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/spf13/cobra"
)

func confirmCmd() *cobra.Command {
	return reviewCmd("confirm", "Confirm a proposed match", true)
}

func rejectCmd() *cobra.Command {
	return reviewCmd("reject", "Reject a proposed match", false)
}

func reviewCmd(use, short string, confirmed bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <bank-id> <ledger-id>",
		Short: short,
		Long: short + `.

The decision is stored as training feedback. Once enough new feedback has
accumulated (model.retrain_threshold) the classifier is retrained.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run")
			key := model.PairKey{BankID: args[0], LedgerID: args[1]}

			sess, err := openSession(cmd.Context(), sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			review := sess.reconciler.Reject
			if confirmed {
				review = sess.reconciler.Confirm
			}
			result, err := review(cmd.Context(), runID, key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "Rejected"
			if confirmed {
				verb = "Confirmed"
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s %s ↔ %s", verb, key.BankID, key.LedgerID)))
			if result.Training != nil {
				printTraining(cmd, result.Training)
			}
			return nil
		},
	}
	cmd.Flags().String("run", "", "run id (default: latest run)")
	return cmd
}

func candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Show the candidates of a stored run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID, _ := cmd.Flags().GetString("run")

			sess, err := openSession(cmd.Context(), sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			run, candidates, err := sess.reconciler.Candidates(cmd.Context(), runID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Run "+run.ID))
			fmt.Fprintln(out, cli.RenderCandidates(candidates))
			return nil
		},
	}
	cmd.Flags().String("run", "", "run id (default: latest run)")
	return cmd
}

func printTraining(cmd *cobra.Command, t *engine.TrainingResult) {
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"Retrained on %d samples: training accuracy %.1f%%, precision %.1f%%, recall %.1f%%",
		t.Run.Samples, t.Metrics.Accuracy*100, t.Metrics.Precision*100, t.Metrics.Recall*100)))
}
