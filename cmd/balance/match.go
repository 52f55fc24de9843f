package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/input"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match bank transactions against ledger entries",
		Long: `Score every bank transaction against every ledger entry and keep the best
ledger match for each bank transaction that reaches the score threshold.

Transactions are read from YAML files with a top-level "transactions" list.
The run and its candidates are stored so they can be confirmed or rejected.`,
		Example: `  # Match with the configured thresholds
  balance match --bank statement.yaml --ledger ledger.yaml

  # Require a stricter score and allow each ledger entry to match only once
  balance match --bank statement.yaml --ledger ledger.yaml --threshold 0.85 --uniqueness one_to_one`,
		RunE: runMatch,
	}

	cmd.Flags().String("bank", "", "bank transactions file (required)")
	cmd.Flags().String("ledger", "", "ledger transactions file (required)")
	cmd.Flags().Float64("threshold", 0, "minimum confidence for a match (default from config)")
	cmd.Flags().String("uniqueness", "", "ledger reuse policy: none or one_to_one (default from config)")
	cmd.Flags().Int("date-tolerance", 0, "days over which the date score decays (default from config)")
	cmd.Flags().Bool("no-progress", false, "do not show a progress bar")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("ledger")

	_ = viper.BindPFlag("matching.score_threshold", cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag("matching.uniqueness", cmd.Flags().Lookup("uniqueness"))
	_ = viper.BindPFlag("matching.date_tolerance_days", cmd.Flags().Lookup("date-tolerance"))

	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	bankPath, _ := cmd.Flags().GetString("bank")
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	bank, err := input.LoadFile(bankPath, model.SideBank)
	if err != nil {
		return err
	}
	ledger, err := input.LoadFile(ledgerPath, model.SideLedger)
	if err != nil {
		return err
	}

	var opts sessionOptions
	if !noProgress {
		opts.onProgress = cli.NewProgress(os.Stderr, len(bank), "Matching transactions...").Update
	}

	interrupts := cli.NewInterruptHandler(os.Stderr, "No run was saved.")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	sess, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.reconciler.Run(ctx, bank, ledger, sess.config.Scoring)
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		return fmt.Errorf("match failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("Proposed matches"))
	fmt.Fprintln(out, cli.RenderCandidates(result.Candidates))
	fmt.Fprintln(out, cli.RenderSummary(result.Run, result.Summary))
	if len(result.Candidates) > 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Review with: balance confirm <bank-id> <ledger-id> --run %s", result.Run.ID)))
	}
	return nil
}
