package scoring

import (
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/features"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorePair(t *testing.T, bank, ledger model.Transaction, cfg model.ScoringConfig) Breakdown {
	t.Helper()
	v, err := features.Compute(bank, ledger)
	require.NoError(t, err)
	b, err := Heuristic{}.Score(v, cfg)
	require.NoError(t, err)
	return b
}

func TestHeuristic_IdenticalPairScoresOne(t *testing.T) {
	bank := testutil.Tx("B1", "2024-01-01", "Payment", "100.00")
	ledger := testutil.Tx("L1", "2024-01-01", "Payment", "100.00")

	b := scorePair(t, bank, ledger, model.DefaultScoringConfig())

	assert.Equal(t, 1.0, b.Amount)
	assert.Equal(t, 1.0, b.Date)
	assert.Equal(t, 1.0, b.Description)
	assert.Equal(t, 1.0, b.Combined)
	assert.False(t, b.Boosted)
	assert.Empty(t, b.Notes)
	assert.Equal(t, model.ScoredByHeuristic, b.ScoredBy)
}

func TestHeuristic_AmountBeyondFivePercentScoresZero(t *testing.T) {
	bank := testutil.Tx("B1", "2024-01-01", "Payment", "100.00")
	ledger := testutil.Tx("L1", "2024-01-01", "Payment", "80.00")

	b := scorePair(t, bank, ledger, model.DefaultScoringConfig())

	assert.Equal(t, 0.0, b.Amount)
	assert.Contains(t, b.Notes, NoteAmountMismatch)
}

func TestAmountScore(t *testing.T) {
	exactOnly := model.DefaultScoringConfig()
	exactOnly.AmountTolerance = 0

	wide := model.DefaultScoringConfig()
	wide.AmountPercentageTolerance = 5

	tests := []struct {
		cfg    *model.ScoringConfig
		name   string
		bank   string
		ledger string
		want   float64
	}{
		{name: "exact", bank: "100.00", ledger: "100.00", want: 1},
		{name: "sub-cent difference", bank: "100.000", ledger: "100.005", want: 1},
		{name: "within one percent", bank: "100.00", ledger: "99.10", want: 0.8},
		{name: "within five percent", bank: "100.00", ledger: "96.00", want: 0.5},
		{name: "beyond five percent", bank: "100.00", ledger: "94.00", want: 0},
		{name: "opposite signs compare magnitudes", bank: "-100.00", ledger: "100.00", want: 1},
		{name: "zero tolerance keeps equal amounts exact", cfg: &exactOnly, bank: "100.00", ledger: "100.00", want: 1},
		{name: "zero tolerance grades a cent apart", cfg: &exactOnly, bank: "100.00", ledger: "99.99", want: 0.8},
		{name: "wide tolerance near band", cfg: &wide, bank: "100.00", ledger: "96.00", want: 0.8},
		{name: "wide tolerance close band", cfg: &wide, bank: "100.00", ledger: "90.00", want: 0.5},
		{name: "wide tolerance beyond close band", cfg: &wide, bank: "100.00", ledger: "70.00", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultScoringConfig()
			if tt.cfg != nil {
				cfg = *tt.cfg
			}
			v, err := features.Compute(
				testutil.Tx("B", "2024-01-01", "x", tt.bank),
				testutil.Tx("L", "2024-01-01", "x", tt.ledger),
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, AmountScore(v, cfg))
		})
	}
}

func TestHeuristic_ZeroToleranceIdenticalPairScoresOne(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	cfg.AmountTolerance = 0
	require.NoError(t, cfg.Validate())

	b := scorePair(t,
		testutil.Tx("B1", "2024-01-01", "Payment", "100.00"),
		testutil.Tx("L1", "2024-01-01", "Payment", "100.00"),
		cfg)

	assert.Equal(t, 1.0, b.Amount)
	assert.Equal(t, 1.0, b.Combined)
}

func TestDateScore(t *testing.T) {
	tests := []struct {
		name   string
		days   float64
		window int
		want   float64
	}{
		{name: "same day", days: 0, window: 7, want: 1},
		{name: "seven days hits floor", days: 7, window: 7, want: 0.2},
		{name: "eight days is zero", days: 8, window: 7, want: 0},
		{name: "zero window only same day", days: 1, window: 0, want: 0},
		{name: "one day of one day window", days: 1, window: 1, want: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DateScore(tt.days, tt.window), 1e-12)
		})
	}

	// Linear decay between the bounds.
	assert.InDelta(t, 1-(3.0/7)*0.8, DateScore(3, 7), 1e-12)
}

func TestHeuristic_DateBoundaryThroughFeatures(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	bank := testutil.Tx("B1", "2024-03-01", "Rent March", "900.00")

	seven := scorePair(t, bank, testutil.Tx("L1", "2024-03-08", "Rent March", "900.00"), cfg)
	assert.InDelta(t, 0.2, seven.Date, 1e-12)

	eight := scorePair(t, bank, testutil.Tx("L2", "2024-03-09", "Rent March", "900.00"), cfg)
	assert.Equal(t, 0.0, eight.Date)
}

func TestHeuristic_DescriptionGate(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	bank := testutil.Tx("B1", "2024-01-01", "Electricity", "80.00")
	ledger := testutil.Tx("L1", "2024-01-01", "Groceries", "80.00")

	b := scorePair(t, bank, ledger, cfg)

	assert.Equal(t, 0.0, b.Description)
	assert.Contains(t, b.Notes, NoteLowDescription)
	assert.Contains(t, b.Notes, NoteManualReview)
	assert.InDelta(t, 0.7, b.Combined, 1e-9)
}

func TestHeuristic_DescriptionDateBoost(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	bank := testutil.Tx("B1", "2024-05-10", "Payment", "100.00")

	boosted := scorePair(t, bank, testutil.Tx("A", "2024-05-12", "Payment 09/05/2024", "100.00"), cfg)
	plain := scorePair(t, bank, testutil.Tx("B", "2024-05-12", "Payment", "100.00"), cfg)

	assert.True(t, boosted.Boosted)
	assert.Contains(t, boosted.Notes, NoteDescriptionDateBoost)
	assert.False(t, plain.Boosted)
	assert.Greater(t, boosted.Combined, plain.Combined)
	assert.LessOrEqual(t, boosted.Combined, 1.0)

	// No boost when the posting dates already agree.
	sameDay := scorePair(t, bank, testutil.Tx("C", "2024-05-10", "Payment 10/05/2024", "100.00"), cfg)
	assert.False(t, sameDay.Boosted)
}

func TestHeuristic_SignMismatch(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	bank := testutil.Tx("B1", "2024-01-01", "Transfer", "-45.00")
	ledger := testutil.Tx("L1", "2024-01-01", "Transfer", "45.00")

	b := scorePair(t, bank, ledger, cfg)

	// Magnitudes match so the pair still scores, but the mismatch is surfaced.
	assert.Equal(t, 1.0, b.Combined)
	assert.Contains(t, b.Notes, NoteSignMismatch)
}

func TestHeuristic_Deterministic(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	bank := testutil.Tx("B1", "2024-05-10", "Card payment Initech", "-512.30")
	ledger := testutil.Tx("L1", "2024-05-13", "Initech invoice 10/05/2024", "-510.00")

	first := scorePair(t, bank, ledger, cfg)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, scorePair(t, bank, ledger, cfg))
	}
}

func TestHeuristic_InvalidConfig(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	cfg.MaxCombinations = 0

	_, err := Heuristic{}.Score(model.FeatureVector{}, cfg)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
