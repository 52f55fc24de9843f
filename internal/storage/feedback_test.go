package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeedback(bankID, ledgerID string, label int, at time.Time) model.FeedbackRecord {
	return model.FeedbackRecord{
		RecordedAt: at,
		BankID:     bankID,
		LedgerID:   ledgerID,
		Schema:     model.FeatureSchema(),
		Features:   model.FeatureVector{AmountDiff: 0.5, AmountRatio: 0.004, DescriptionSimilarity: 92},
		Label:      label,
	}
}

func TestSQLiteStorage_SaveFeedback(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveFeedback(ctx, []model.FeedbackRecord{
		testFeedback("B1", "L1", model.LabelMatched, base),
		testFeedback("B2", "L2", model.LabelRejected, base.Add(time.Minute)),
	}))

	// A later decision on the same pair replaces the earlier one.
	require.NoError(t, store.SaveFeedback(ctx, []model.FeedbackRecord{
		testFeedback("B1", "L1", model.LabelRejected, base.Add(2*time.Minute)),
	}))

	records, err := store.GetFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "B2", records[0].BankID)
	assert.Equal(t, "B1", records[1].BankID)
	assert.Equal(t, model.LabelRejected, records[1].Label)
	assert.Equal(t, model.FeatureSchema(), records[1].Schema)
	assert.Equal(t, 92.0, records[1].Features.DescriptionSimilarity)
}

func TestSQLiteStorage_SaveFeedbackValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		modify func(*model.FeedbackRecord)
		name   string
	}{
		{name: "missing bank id", modify: func(r *model.FeedbackRecord) { r.BankID = "" }},
		{name: "bad label", modify: func(r *model.FeedbackRecord) { r.Label = 7 }},
		{name: "missing schema", modify: func(r *model.FeedbackRecord) { r.Schema = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testFeedback("B1", "L1", model.LabelMatched, time.Now())
			tt.modify(&r)
			assert.ErrorIs(t, store.SaveFeedback(ctx, []model.FeedbackRecord{r}), ErrInvalidFeedback)
		})
	}
}

func TestSQLiteStorage_TrainingRuns(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.GetLatestTrainingRun(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.SaveFeedback(ctx, []model.FeedbackRecord{
		testFeedback("B1", "L1", model.LabelMatched, base),
		testFeedback("B2", "L2", model.LabelMatched, base.Add(time.Minute)),
	}))

	run := &model.TrainingRun{TrainedAt: base.Add(90 * time.Second), Samples: 2, Positives: 2, TrainingAccuracy: 1}
	require.NoError(t, store.SaveTrainingRun(ctx, run))
	assert.NotZero(t, run.ID)

	require.NoError(t, store.SaveFeedback(ctx, []model.FeedbackRecord{
		testFeedback("B3", "L3", model.LabelRejected, base.Add(2*time.Minute)),
	}))

	latest, err := store.GetLatestTrainingRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, 2, latest.Positives)

	total, err := store.CountFeedbackSince(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	pending, err := store.CountFeedbackSince(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}
