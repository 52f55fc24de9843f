// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Match run operations
	SaveRun(ctx context.Context, run *model.MatchRun, candidates []model.MatchCandidate) error
	GetRun(ctx context.Context, id string) (*model.MatchRun, error)
	GetLatestRun(ctx context.Context) (*model.MatchRun, error)
	GetCandidates(ctx context.Context, runID string) ([]model.MatchCandidate, error)
	GetCandidate(ctx context.Context, runID string, key model.PairKey) (*model.MatchCandidate, error)
	UpdateCandidateStatus(ctx context.Context, runID string, key model.PairKey, status model.MatchStatus) error

	// Feedback operations
	SaveFeedback(ctx context.Context, records []model.FeedbackRecord) error
	GetFeedback(ctx context.Context) ([]model.FeedbackRecord, error)
	CountFeedbackSince(ctx context.Context, since *model.TrainingRun) (int, error)

	// Training history
	SaveTrainingRun(ctx context.Context, run *model.TrainingRun) error
	GetLatestTrainingRun(ctx context.Context) (*model.TrainingRun, error)

	// Model blobs
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)

	// Maintenance
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}
