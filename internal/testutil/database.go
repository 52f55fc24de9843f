// Package testutil provides shared fixtures for reconciliation tests: an
// isolated in-memory database and compact transaction builders.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	SkipMigrations bool
}

// SetupTestDB creates a new migrated in-memory test database that is closed
// when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	reconciler := engine.New(db.Storage, nil)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCandidates returns the stored candidates of a run or fails the test.
func (db *TestDB) MustCandidates(runID string) []model.MatchCandidate {
	db.t.Helper()
	candidates, err := db.Storage.GetCandidates(context.Background(), runID)
	if err != nil {
		db.t.Fatalf("failed to load candidates for run %s: %v", runID, err)
	}
	return candidates
}

// MustFeedback returns all stored feedback or fails the test.
func (db *TestDB) MustFeedback() []model.FeedbackRecord {
	db.t.Helper()
	records, err := db.Storage.GetFeedback(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load feedback: %v", err)
	}
	return records
}
