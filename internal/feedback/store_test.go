package feedback

import (
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(bankID, ledgerID string, similarity float64) model.MatchCandidate {
	return model.MatchCandidate{
		Bank:     model.Transaction{ID: bankID},
		Ledger:   model.Transaction{ID: ledgerID},
		Features: model.FeatureVector{DescriptionSimilarity: similarity},
	}
}

func TestStore_Record(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	r := s.Record(candidate("B1", "L1", 88), true)

	assert.Equal(t, model.LabelMatched, r.Label)
	assert.Equal(t, "B1", r.BankID)
	assert.Equal(t, "L1", r.LedgerID)
	assert.Equal(t, model.FeatureSchema(), r.Schema)
	assert.Equal(t, 88.0, r.Features.DescriptionSimilarity)
	assert.Equal(t, fixed, r.RecordedAt)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ZeroValue(t *testing.T) {
	var s Store

	r := s.Record(candidate("B1", "L1", 70), false)
	assert.Equal(t, model.LabelRejected, r.Label)
	assert.False(t, r.RecordedAt.IsZero())

	s.Add(model.FeedbackRecord{BankID: "B1", LedgerID: "L1", Label: model.LabelMatched})
	require.Equal(t, 1, s.Len())
	assert.Equal(t, model.LabelMatched, s.Snapshot()[0].Label)

	s.Drain()
	s.Add(model.FeedbackRecord{BankID: "B2", LedgerID: "L2"})
	assert.Equal(t, 1, s.Len())
}

func TestStore_LastDecisionWins(t *testing.T) {
	s := NewStore()

	s.Record(candidate("B1", "L1", 90), true)
	s.Record(candidate("B2", "L2", 40), false)
	s.Record(candidate("B1", "L1", 90), false)

	records := s.Drain()
	require.Len(t, records, 2)
	assert.Equal(t, "B1", records[0].BankID, "re-recorded pair keeps its position")
	assert.Equal(t, model.LabelRejected, records[0].Label)
	assert.Equal(t, "B2", records[1].BankID)
}

func TestStore_Drain(t *testing.T) {
	s := NewStore()
	s.Record(candidate("B1", "L1", 90), true)
	s.Record(candidate("B1", "L2", 30), false)

	snapshot := s.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 2, s.Len(), "snapshot must not clear")

	drained := s.Drain()
	assert.Equal(t, snapshot, drained)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Drain())

	// The store is reusable after draining.
	s.Record(candidate("B1", "L1", 90), true)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Load(t *testing.T) {
	s := NewStore()
	s.Load([]model.FeedbackRecord{
		{BankID: "B1", LedgerID: "L1", Label: model.LabelMatched},
		{BankID: "B1", LedgerID: "L1", Label: model.LabelRejected},
		{BankID: "B2", LedgerID: "L1", Label: model.LabelMatched},
	})

	records := s.Snapshot()
	require.Len(t, records, 2)
	assert.False(t, records[0].Confirmed())
	assert.True(t, records[1].Confirmed())
}

func TestRetrainPolicy_Due(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		pending   int
		want      bool
	}{
		{name: "below threshold", threshold: 10, pending: 9, want: false},
		{name: "at threshold", threshold: 10, pending: 10, want: true},
		{name: "disabled", threshold: 0, pending: 100, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetrainPolicy{Threshold: tt.threshold}.Due(tt.pending))
		})
	}
}
