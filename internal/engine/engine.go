// Package engine orchestrates reconciliation runs, review feedback and
// classifier retraining on top of the matching core.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/classifier"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/feedback"
	"github.com/Veraticus/the-books-must-balance/internal/matcher"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/google/uuid"
)

// Reconciler runs matching over bank and ledger transactions, records
// review decisions and retrains the classifier from them.
type Reconciler struct {
	storage    service.Storage
	classifier *classifier.Classifier
	selector   *matcher.Selector
	feedback   *feedback.Store
	now        func() time.Time
	config     Config
}

// Config holds configuration options for the reconciler.
type Config struct {
	// OnProgress is called after each chunk with the number of bank
	// transactions processed so far.
	OnProgress func(done, total int)
	Scoring    model.ScoringConfig
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Scoring: model.DefaultScoringConfig(),
	}
}

// RunResult is the outcome of one reconciliation run.
type RunResult struct {
	Candidates []model.MatchCandidate
	Run        model.MatchRun
	Summary    matcher.Summary
}

// ReviewResult is the outcome of confirming or rejecting a candidate.
type ReviewResult struct {
	Training *TrainingResult // set when the review triggered a retrain
	Record   model.FeedbackRecord
}

// TrainingResult describes a completed retrain.
type TrainingResult struct {
	Run     model.TrainingRun
	Metrics classifier.Metrics
}

// New creates a reconciler with the given dependencies.
func New(storage service.Storage, clf *classifier.Classifier) *Reconciler {
	return NewWithConfig(storage, clf, DefaultConfig())
}

// NewWithConfig creates a reconciler with custom configuration.
func NewWithConfig(storage service.Storage, clf *classifier.Classifier, config Config) *Reconciler {
	if clf == nil {
		clf = classifier.New(storage)
	}
	return &Reconciler{
		storage:    storage,
		classifier: clf,
		selector:   matcher.New(nil),
		feedback:   feedback.NewStore(),
		now:        time.Now,
		config:     config,
	}
}

// Classifier returns the classifier used for scoring.
func (r *Reconciler) Classifier() *classifier.Classifier {
	return r.classifier
}

// PendingFeedback returns the number of decisions recorded since the last
// retrain in this session.
func (r *Reconciler) PendingFeedback() int {
	return r.feedback.Len()
}

// Run matches bank against ledger and stores the run with its candidates.
// Bank transactions are processed in chunks that stay within
// cfg.MaxCombinations; cancellation is checked between chunks and a
// cancelled run stores nothing.
func (r *Reconciler) Run(ctx context.Context, bank, ledger []model.Transaction, cfg model.ScoringConfig) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := matcher.ValidateInputs(bank, ledger); err != nil {
		return nil, err
	}
	chunks, err := matcher.Plan(len(bank), len(ledger), cfg.MaxCombinations)
	if err != nil {
		return nil, err
	}

	startedAt := r.now().UTC()
	slog.Info("Starting reconciliation run",
		"bank", len(bank),
		"ledger", len(ledger),
		"chunks", len(chunks),
		"uniqueness", cfg.Uniqueness)

	var candidates []model.MatchCandidate
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		part := bank[chunk.Start:chunk.End]
		var found []model.MatchCandidate
		if cfg.Uniqueness == model.UniquenessOneToOne {
			found, err = r.selector.Pairs(part, ledger, r.classifier, cfg)
		} else {
			found, err = r.selector.Select(part, ledger, r.classifier, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to match bank transactions %d-%d: %w", chunk.Start, chunk.End, err)
		}
		candidates = append(candidates, found...)

		if r.config.OnProgress != nil {
			r.config.OnProgress(chunk.End, len(bank))
		}
	}
	if cfg.Uniqueness == model.UniquenessOneToOne {
		candidates = matcher.ResolveOneToOne(candidates)
	}

	scoredBy := model.ScoredByHeuristic
	if r.classifier.State() == classifier.StateTrained {
		scoredBy = model.ScoredByClassifier
	}
	run := model.MatchRun{
		ID:          uuid.NewString(),
		StartedAt:   startedAt,
		ScoredBy:    scoredBy,
		BankCount:   len(bank),
		LedgerCount: len(ledger),
		MatchCount:  len(candidates),
	}
	if err := r.storage.SaveRun(ctx, &run, candidates); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	summary := matcher.Summarize(candidates, len(bank), len(ledger))
	slog.Info("Reconciliation run complete",
		"run_id", run.ID,
		"scored_by", run.ScoredBy,
		"matched", summary.Matched,
		"high", summary.High,
		"medium", summary.Medium,
		"low", summary.Low,
		"duration", r.now().Sub(startedAt))

	return &RunResult{
		Run:        run,
		Candidates: candidates,
		Summary:    summary,
	}, nil
}

// Candidates returns the stored candidates of a run. An empty runID selects
// the latest run.
func (r *Reconciler) Candidates(ctx context.Context, runID string) (*model.MatchRun, []model.MatchCandidate, error) {
	run, err := r.resolveRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := r.storage.GetCandidates(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, candidates, nil
}

// Confirm marks a candidate as a true match and records it as positive feedback.
func (r *Reconciler) Confirm(ctx context.Context, runID string, key model.PairKey) (*ReviewResult, error) {
	return r.review(ctx, runID, key, true)
}

// Reject marks a candidate as a false match and records it as negative feedback.
func (r *Reconciler) Reject(ctx context.Context, runID string, key model.PairKey) (*ReviewResult, error) {
	return r.review(ctx, runID, key, false)
}

func (r *Reconciler) review(ctx context.Context, runID string, key model.PairKey, confirmed bool) (*ReviewResult, error) {
	run, err := r.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	candidate, err := r.storage.GetCandidate(ctx, run.ID, key)
	if err != nil {
		return nil, err
	}

	status := model.StatusRejected
	if confirmed {
		status = model.StatusMatched
	}
	if err := r.storage.UpdateCandidateStatus(ctx, run.ID, key, status); err != nil {
		return nil, fmt.Errorf("failed to update candidate: %w", err)
	}

	record := r.feedback.Record(*candidate, confirmed)
	if err := r.storage.SaveFeedback(ctx, []model.FeedbackRecord{record}); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	common.LogInfo("Recorded review decision", common.Fields{
		"run_id":    run.ID,
		"bank_id":   key.BankID,
		"ledger_id": key.LedgerID,
		"status":    string(status),
	})

	training, err := r.maybeRetrain(ctx)
	if err != nil {
		return nil, err
	}
	return &ReviewResult{Record: record, Training: training}, nil
}

// maybeRetrain retrains when enough feedback has accumulated since the last
// training run. Too little data overall is not an error here.
func (r *Reconciler) maybeRetrain(ctx context.Context) (*TrainingResult, error) {
	policy := feedback.RetrainPolicy{Threshold: r.config.Scoring.RetrainThreshold}

	latest, err := r.storage.GetLatestTrainingRun(ctx)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load training history: %w", err)
	}
	pending, err := r.storage.CountFeedbackSince(ctx, latest)
	if err != nil {
		return nil, err
	}
	if !policy.Due(pending) {
		return nil, nil
	}

	result, err := r.Retrain(ctx, r.config.Scoring)
	if errors.Is(err, common.ErrInsufficientTrainingData) {
		slog.Info("Skipping automatic retrain", "pending", pending, "reason", err)
		return nil, nil
	}
	return result, err
}

// Retrain fits the classifier on all stored feedback and stores the training
// run. The reported metrics are measured on the training records at
// cfg.ScoreThreshold.
func (r *Reconciler) Retrain(ctx context.Context, cfg model.ScoringConfig) (*TrainingResult, error) {
	records, err := r.storage.GetFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := r.classifier.Train(ctx, records); err != nil {
		return nil, err
	}

	metrics, err := r.classifier.Evaluate(records, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}

	meta := r.classifier.Metadata()
	run := model.TrainingRun{
		TrainedAt:        meta.TrainedAt,
		Samples:          meta.Samples,
		Positives:        meta.Positives,
		Negatives:        meta.Negatives,
		TrainingAccuracy: metrics.Accuracy,
	}
	if err := r.storage.SaveTrainingRun(ctx, &run); err != nil {
		return nil, fmt.Errorf("failed to save training run: %w", err)
	}
	r.feedback.Drain()

	slog.Info("Retrained match classifier",
		"samples", run.Samples,
		"positives", run.Positives,
		"negatives", run.Negatives,
		"training_accuracy", metrics.Accuracy,
		"training_precision", metrics.Precision,
		"training_recall", metrics.Recall)

	return &TrainingResult{Run: run, Metrics: metrics}, nil
}

func (r *Reconciler) resolveRun(ctx context.Context, runID string) (*model.MatchRun, error) {
	if runID == "" {
		return r.storage.GetLatestRun(ctx)
	}
	return r.storage.GetRun(ctx, runID)
}
