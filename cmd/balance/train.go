package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/spf13/cobra"
)

func trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the match classifier from all stored feedback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), sessionOptions{skipModel: true})
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := sess.reconciler.Retrain(cmd.Context(), sess.config.Scoring)
			if errors.Is(err, common.ErrInsufficientTrainingData) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(err.Error()))
				return nil
			}
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}
			printTraining(cmd, result)
			return nil
		},
	}
}

func modelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Show the match classifier status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			clf := sess.reconciler.Classifier()
			status := cli.ModelStatus{
				State:   string(clf.State()),
				Key:     sess.config.Model.Key,
				Schema:  clf.Metadata().Schema,
				Samples: clf.Metadata().Samples,
			}
			if len(status.Schema) == 0 {
				status.Schema = model.FeatureSchema()
			}

			latest, err := sess.store.GetLatestTrainingRun(ctx)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return err
			}
			status.Training = latest
			if status.Pending, err = sess.store.CountFeedbackSince(ctx, latest); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderModel(status))
			return nil
		},
	}
}
