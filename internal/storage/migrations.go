package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial reconciliation schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS match_runs (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					scored_by TEXT NOT NULL,
					bank_count INTEGER NOT NULL,
					ledger_count INTEGER NOT NULL,
					match_count INTEGER NOT NULL
				)`,
				`CREATE INDEX idx_match_runs_started_at ON match_runs(started_at)`,

				`CREATE TABLE IF NOT EXISTS match_candidates (
					run_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					bank_id TEXT NOT NULL,
					bank_date DATETIME NOT NULL,
					bank_description TEXT NOT NULL,
					bank_amount TEXT NOT NULL,
					bank_reference TEXT,
					ledger_id TEXT NOT NULL,
					ledger_date DATETIME NOT NULL,
					ledger_description TEXT NOT NULL,
					ledger_amount TEXT NOT NULL,
					ledger_reference TEXT,
					amount_score REAL NOT NULL,
					date_score REAL NOT NULL,
					description_score REAL NOT NULL,
					confidence REAL NOT NULL,
					band TEXT NOT NULL,
					status TEXT NOT NULL,
					scored_by TEXT NOT NULL,
					boosted INTEGER NOT NULL DEFAULT 0,
					notes TEXT,
					features TEXT NOT NULL,
					PRIMARY KEY (run_id, bank_id, ledger_id),
					FOREIGN KEY (run_id) REFERENCES match_runs(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS feedback (
					bank_id TEXT NOT NULL,
					ledger_id TEXT NOT NULL,
					label INTEGER NOT NULL,
					features TEXT NOT NULL,
					feature_schema TEXT NOT NULL,
					recorded_at DATETIME NOT NULL,
					PRIMARY KEY (bank_id, ledger_id)
				)`,
				`CREATE INDEX idx_feedback_recorded_at ON feedback(recorded_at)`,

				`CREATE TABLE IF NOT EXISTS model_blobs (
					blob_key TEXT PRIMARY KEY,
					data BLOB NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add training history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS training_runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					trained_at DATETIME NOT NULL,
					samples INTEGER NOT NULL,
					positives INTEGER NOT NULL,
					negatives INTEGER NOT NULL,
					accuracy REAL NOT NULL DEFAULT 0
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
