package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/classifier"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/matcher"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T, config Config) (*Reconciler, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewWithConfig(db.Storage, classifier.New(db.Storage), config), db
}

func TestReconciler_Run(t *testing.T) {
	r, db := newTestReconciler(t, DefaultConfig())
	ctx := context.Background()

	bank := testutil.Series("B", "2024-04-01", 4)
	ledger := testutil.Series("L", "2024-04-01", 4)

	result, err := r.Run(ctx, bank, ledger, model.DefaultScoringConfig())
	require.NoError(t, err)

	_, err = uuid.Parse(result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScoredByHeuristic, result.Run.ScoredBy)
	assert.Equal(t, 4, result.Run.MatchCount)
	assert.Equal(t, 4, result.Summary.High)
	assert.InDelta(t, 1.0, result.Summary.MatchRate, 1e-9)

	for i, c := range result.Candidates {
		assert.Equal(t, bank[i].ID, c.Bank.ID)
		assert.Equal(t, ledger[i].ID, c.Ledger.ID)
	}

	stored := db.MustCandidates(result.Run.ID)
	require.Len(t, stored, 4)
	assert.Equal(t, result.Candidates[2].Key(), stored[2].Key())

	run, candidates, err := r.Candidates(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, result.Run.ID, run.ID)
	assert.Len(t, candidates, 4)
}

func TestReconciler_RunChunked(t *testing.T) {
	bank := testutil.Series("B", "2024-04-01", 7)
	ledger := testutil.Series("L", "2024-04-01", 3)

	for _, uniqueness := range []model.Uniqueness{model.UniquenessNone, model.UniquenessOneToOne} {
		t.Run(string(uniqueness), func(t *testing.T) {
			whole := model.DefaultScoringConfig()
			whole.Uniqueness = uniqueness
			whole.ScoreThreshold = 0.3
			want, err := matcher.New(nil).Select(bank, ledger, classifier.New(nil), whole)
			require.NoError(t, err)

			var progress []int
			config := DefaultConfig()
			config.OnProgress = func(done, total int) {
				assert.Equal(t, len(bank), total)
				progress = append(progress, done)
			}
			r, _ := newTestReconciler(t, config)

			chunked := whole
			chunked.MaxCombinations = 6
			result, err := r.Run(context.Background(), bank, ledger, chunked)
			require.NoError(t, err)

			assert.Equal(t, []int{2, 4, 6, 7}, progress)
			assert.Equal(t, want, result.Candidates)
		})
	}
}

func TestReconciler_RunCancelled(t *testing.T) {
	r, db := newTestReconciler(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, testutil.Series("B", "2024-04-01", 2), testutil.Series("L", "2024-04-01", 2), model.DefaultScoringConfig())
	require.ErrorIs(t, err, context.Canceled)

	_, err = db.Storage.GetLatestRun(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReconciler_RunInvalidInput(t *testing.T) {
	r, _ := newTestReconciler(t, DefaultConfig())
	cfg := model.DefaultScoringConfig()
	cfg.MaxCombinations = 2

	bank := testutil.Series("B", "2024-04-01", 4)
	bank[3].ID = bank[0].ID
	ledger := testutil.Series("L", "2024-04-01", 1)

	// The duplicate lands in a different chunk than the original.
	_, err := r.Run(context.Background(), bank, ledger, cfg)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	var inputErr *common.InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "B-1", inputErr.TransactionID)

	_, err = r.Run(context.Background(), bank[:1], nil, cfg)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	cfg.ScoreThreshold = 2
	_, err = r.Run(context.Background(), bank[:1], ledger, cfg)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestReconciler_ConfirmReject(t *testing.T) {
	config := DefaultConfig()
	config.Scoring.RetrainThreshold = 0
	r, db := newTestReconciler(t, config)
	ctx := context.Background()

	result, err := r.Run(ctx, testutil.Series("B", "2024-04-01", 2), testutil.Series("L", "2024-04-01", 2), model.DefaultScoringConfig())
	require.NoError(t, err)

	first := result.Candidates[0].Key()
	second := result.Candidates[1].Key()

	review, err := r.Confirm(ctx, result.Run.ID, first)
	require.NoError(t, err)
	assert.True(t, review.Record.Confirmed())
	assert.Nil(t, review.Training)

	review, err = r.Reject(ctx, "", second)
	require.NoError(t, err)
	assert.Equal(t, model.LabelRejected, review.Record.Label)

	stored := db.MustCandidates(result.Run.ID)
	assert.Equal(t, model.StatusMatched, stored[0].Status)
	assert.Equal(t, model.StatusRejected, stored[1].Status)

	// Changing a decision replaces the earlier feedback.
	_, err = r.Reject(ctx, result.Run.ID, first)
	require.NoError(t, err)
	records := db.MustFeedback()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, model.LabelRejected, rec.Label)
		assert.Equal(t, model.FeatureSchema(), rec.Schema)
	}
	assert.Equal(t, 2, r.PendingFeedback())

	_, err = r.Confirm(ctx, result.Run.ID, model.PairKey{BankID: "B-1", LedgerID: "L-2"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = r.Confirm(ctx, "no-such-run", first)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReconciler_AutoRetrain(t *testing.T) {
	config := DefaultConfig()
	config.Scoring.RetrainThreshold = 5
	r, db := newTestReconciler(t, config)
	ctx := context.Background()

	result, err := r.Run(ctx, testutil.Series("B", "2024-04-01", 5), testutil.Series("L", "2024-04-01", 5), model.DefaultScoringConfig())
	require.NoError(t, err)
	require.Len(t, result.Candidates, 5)

	for i, c := range result.Candidates[:4] {
		var review *ReviewResult
		if i%2 == 0 {
			review, err = r.Confirm(ctx, result.Run.ID, c.Key())
		} else {
			review, err = r.Reject(ctx, result.Run.ID, c.Key())
		}
		require.NoError(t, err)
		assert.Nil(t, review.Training)
	}
	assert.Equal(t, classifier.StateUntrained, r.Classifier().State())

	review, err := r.Confirm(ctx, result.Run.ID, result.Candidates[4].Key())
	require.NoError(t, err)
	require.NotNil(t, review.Training)
	assert.Equal(t, 5, review.Training.Run.Samples)
	assert.Equal(t, 3, review.Training.Run.Positives)
	assert.Equal(t, classifier.StateTrained, r.Classifier().State())
	assert.Zero(t, r.PendingFeedback())

	latest, err := db.Storage.GetLatestTrainingRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, review.Training.Run.ID, latest.ID)

	// The model is persisted alongside the runs.
	reloaded := classifier.New(db.Storage)
	found, err := reloaded.LoadIfExists(ctx)
	require.NoError(t, err)
	assert.True(t, found)

	next, err := r.Run(ctx, testutil.Series("B", "2024-05-01", 2), testutil.Series("L", "2024-05-01", 2), model.DefaultScoringConfig())
	require.NoError(t, err)
	assert.Equal(t, model.ScoredByClassifier, next.Run.ScoredBy)
}

func TestReconciler_AutoRetrainSkipsInsufficientData(t *testing.T) {
	config := DefaultConfig()
	config.Scoring.RetrainThreshold = 2
	r, db := newTestReconciler(t, config)
	ctx := context.Background()

	result, err := r.Run(ctx, testutil.Series("B", "2024-04-01", 2), testutil.Series("L", "2024-04-01", 2), model.DefaultScoringConfig())
	require.NoError(t, err)

	for _, c := range result.Candidates {
		review, err := r.Confirm(ctx, result.Run.ID, c.Key())
		require.NoError(t, err)
		assert.Nil(t, review.Training)
	}
	assert.Equal(t, classifier.StateUntrained, r.Classifier().State())

	_, err = db.Storage.GetLatestTrainingRun(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = r.Retrain(ctx, model.DefaultScoringConfig())
	assert.ErrorIs(t, err, common.ErrInsufficientTrainingData)
}

func TestReconciler_RetrainUsesGivenConfig(t *testing.T) {
	config := DefaultConfig()
	config.Scoring.RetrainThreshold = 0
	r, db := newTestReconciler(t, config)
	ctx := context.Background()

	result, err := r.Run(ctx, testutil.Series("B", "2024-04-01", 5), testutil.Series("L", "2024-04-01", 5), model.DefaultScoringConfig())
	require.NoError(t, err)
	for i, c := range result.Candidates {
		if i%2 == 0 {
			_, err = r.Confirm(ctx, result.Run.ID, c.Key())
		} else {
			_, err = r.Reject(ctx, result.Run.ID, c.Key())
		}
		require.NoError(t, err)
	}

	bad := model.DefaultScoringConfig()
	bad.ScoreThreshold = -1
	_, err = r.Retrain(ctx, bad)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.Equal(t, classifier.StateUntrained, r.Classifier().State())

	// Every record is predicted a match at a zero threshold.
	cfg := model.DefaultScoringConfig()
	cfg.ScoreThreshold = 0
	training, err := r.Retrain(ctx, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, training.Metrics.Recall, 1e-9)
	assert.InDelta(t, 0.6, training.Metrics.Precision, 1e-9)
	assert.InDelta(t, 0.6, training.Run.TrainingAccuracy, 1e-9)

	latest, err := db.Storage.GetLatestTrainingRun(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, latest.TrainingAccuracy, 1e-9)
}
