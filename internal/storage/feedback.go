package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// SaveFeedback upserts feedback records. A later decision on the same pair
// replaces the earlier one.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, records []model.FeedbackRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range records {
		if err := validateFeedback(&records[i]); err != nil {
			return fmt.Errorf("feedback at index %d: %w", i, err)
		}
	}
	if len(records) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO feedback (bank_id, ledger_id, label, features, feature_schema, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(bank_id, ledger_id) DO UPDATE SET
				label = excluded.label,
				features = excluded.features,
				feature_schema = excluded.feature_schema,
				recorded_at = excluded.recorded_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			featuresJSON, err := json.Marshal(r.Features)
			if err != nil {
				return fmt.Errorf("failed to marshal features: %w", err)
			}
			schemaJSON, err := json.Marshal(r.Schema)
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			recordedAt := r.RecordedAt
			if recordedAt.IsZero() {
				recordedAt = time.Now()
			}
			if _, err := stmt.ExecContext(ctx,
				r.BankID, r.LedgerID, r.Label,
				string(featuresJSON), string(schemaJSON), recordedAt.UTC(),
			); err != nil {
				return fmt.Errorf("failed to save feedback %s/%s: %w", r.BankID, r.LedgerID, err)
			}
		}
		return nil
	})
}

// GetFeedback returns every stored feedback record, oldest first.
func (s *SQLiteStorage) GetFeedback(ctx context.Context) ([]model.FeedbackRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bank_id, ledger_id, label, features, feature_schema, recorded_at
		FROM feedback
		ORDER BY recorded_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FeedbackRecord
	for rows.Next() {
		var (
			r            model.FeedbackRecord
			featuresJSON string
			schemaJSON   string
		)
		if err := rows.Scan(&r.BankID, &r.LedgerID, &r.Label, &featuresJSON, &schemaJSON, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if err := json.Unmarshal([]byte(featuresJSON), &r.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features for %s/%s: %w", r.BankID, r.LedgerID, err)
		}
		if err := json.Unmarshal([]byte(schemaJSON), &r.Schema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema for %s/%s: %w", r.BankID, r.LedgerID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}
	return records, nil
}

// CountFeedbackSince counts feedback recorded after the given training run,
// or all feedback when since is nil.
func (s *SQLiteStorage) CountFeedbackSince(ctx context.Context, since *model.TrainingRun) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var (
		count int
		err   error
	)
	if since == nil {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM feedback WHERE recorded_at > ?`, since.TrainedAt.UTC()).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// SaveTrainingRun records a completed training and sets run.ID.
func (s *SQLiteStorage) SaveTrainingRun(ctx context.Context, run *model.TrainingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: training run", ErrNilParameter)
	}
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO training_runs (trained_at, samples, positives, negatives, accuracy)
		VALUES (?, ?, ?, ?, ?)
	`, run.TrainedAt.UTC(), run.Samples, run.Positives, run.Negatives, run.TrainingAccuracy)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get training run id: %w", err)
	}
	run.ID = id
	return nil
}

// GetLatestTrainingRun returns the most recent training run.
func (s *SQLiteStorage) GetLatestTrainingRun(ctx context.Context) (*model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var run model.TrainingRun
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trained_at, samples, positives, negatives, accuracy
		FROM training_runs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.TrainedAt, &run.Samples, &run.Positives, &run.Negatives, &run.TrainingAccuracy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no training runs", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}
	return &run, nil
}
