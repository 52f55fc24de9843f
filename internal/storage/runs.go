package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// SaveRun stores a run and its candidates in a single transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.MatchRun, candidates []model.MatchCandidate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	for i := range candidates {
		if err := validateCandidate(&candidates[i]); err != nil {
			return fmt.Errorf("candidate at index %d: %w", i, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_runs (id, started_at, scored_by, bank_count, ledger_count, match_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, run.StartedAt.UTC(), run.ScoredBy, run.BankCount, run.LedgerCount, run.MatchCount)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO match_candidates (
				run_id, position,
				bank_id, bank_date, bank_description, bank_amount, bank_reference,
				ledger_id, ledger_date, ledger_description, ledger_amount, ledger_reference,
				amount_score, date_score, description_score, confidence,
				band, status, scored_by, boosted, notes, features
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, c := range candidates {
			notesJSON, err := json.Marshal(c.Notes)
			if err != nil {
				return fmt.Errorf("failed to marshal notes: %w", err)
			}
			featuresJSON, err := json.Marshal(c.Features)
			if err != nil {
				return fmt.Errorf("failed to marshal features: %w", err)
			}
			if _, err := stmt.ExecContext(ctx,
				run.ID, i,
				c.Bank.ID, c.Bank.Date.UTC(), c.Bank.Description, c.Bank.Amount.String(), c.Bank.Reference,
				c.Ledger.ID, c.Ledger.Date.UTC(), c.Ledger.Description, c.Ledger.Amount.String(), c.Ledger.Reference,
				c.AmountScore, c.DateScore, c.DescriptionScore, c.ConfidenceScore,
				string(c.Band), string(c.Status), c.ScoredBy, c.Boosted, string(notesJSON), string(featuresJSON),
			); err != nil {
				return fmt.Errorf("failed to save candidate %s/%s: %w", c.Bank.ID, c.Ledger.ID, err)
			}
		}
		return nil
	})
}

// GetRun returns a run by id.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.MatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getRun(ctx, s.db, `WHERE id = ?`, id)
}

// GetLatestRun returns the most recently started run.
func (s *SQLiteStorage) GetLatestRun(ctx context.Context) (*model.MatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRun(ctx, s.db, `ORDER BY started_at DESC, rowid DESC LIMIT 1`)
}

func (s *SQLiteStorage) getRun(ctx context.Context, q queryable, clause string, args ...any) (*model.MatchRun, error) {
	var run model.MatchRun
	err := q.QueryRowContext(ctx, `
		SELECT id, started_at, scored_by, bank_count, ledger_count, match_count
		FROM match_runs `+clause, args...).Scan(
		&run.ID,
		&run.StartedAt,
		&run.ScoredBy,
		&run.BankCount,
		&run.LedgerCount,
		&run.MatchCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: match run", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

const candidateColumns = `
	bank_id, bank_date, bank_description, bank_amount, bank_reference,
	ledger_id, ledger_date, ledger_description, ledger_amount, ledger_reference,
	amount_score, date_score, description_score, confidence,
	band, status, scored_by, boosted, notes, features`

// GetCandidates returns the candidates of a run in their original order.
func (s *SQLiteStorage) GetCandidates(ctx context.Context, runID string) ([]model.MatchCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+candidateColumns+`
		FROM match_candidates
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.MatchCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

// GetCandidate returns a single candidate of a run.
func (s *SQLiteStorage) GetCandidate(ctx context.Context, runID string, key model.PairKey) (*model.MatchCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+`
		FROM match_candidates
		WHERE run_id = ? AND bank_id = ? AND ledger_id = ?`, runID, key.BankID, key.LedgerID)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: candidate %s/%s in run %s", common.ErrNotFound, key.BankID, key.LedgerID, runID)
	}
	return c, err
}

// UpdateCandidateStatus sets the review status of a candidate.
func (s *SQLiteStorage) UpdateCandidateStatus(ctx context.Context, runID string, key model.PairKey, status model.MatchStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE match_candidates SET status = ?
		WHERE run_id = ? AND bank_id = ? AND ledger_id = ?
	`, string(status), runID, key.BankID, key.LedgerID)
	if err != nil {
		return fmt.Errorf("failed to update candidate status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: candidate %s/%s in run %s", common.ErrNotFound, key.BankID, key.LedgerID, runID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row scanner) (*model.MatchCandidate, error) {
	var (
		c            model.MatchCandidate
		bankAmount   string
		ledgerAmount string
		bankRef      sql.NullString
		ledgerRef    sql.NullString
		band, status string
		notesJSON    sql.NullString
		featuresJSON string
	)
	err := row.Scan(
		&c.Bank.ID, &c.Bank.Date, &c.Bank.Description, &bankAmount, &bankRef,
		&c.Ledger.ID, &c.Ledger.Date, &c.Ledger.Description, &ledgerAmount, &ledgerRef,
		&c.AmountScore, &c.DateScore, &c.DescriptionScore, &c.ConfidenceScore,
		&band, &status, &c.ScoredBy, &c.Boosted, &notesJSON, &featuresJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan candidate: %w", err)
	}

	if c.Bank.Amount, err = decimal.NewFromString(bankAmount); err != nil {
		return nil, fmt.Errorf("invalid stored bank amount %q: %w", bankAmount, err)
	}
	if c.Ledger.Amount, err = decimal.NewFromString(ledgerAmount); err != nil {
		return nil, fmt.Errorf("invalid stored ledger amount %q: %w", ledgerAmount, err)
	}
	c.Bank.Reference = bankRef.String
	c.Ledger.Reference = ledgerRef.String
	c.Band = model.ConfidenceBand(band)
	c.Status = model.MatchStatus(status)

	if notesJSON.Valid && notesJSON.String != "" && notesJSON.String != "null" {
		if err := json.Unmarshal([]byte(notesJSON.String), &c.Notes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(featuresJSON), &c.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	return &c, nil
}
