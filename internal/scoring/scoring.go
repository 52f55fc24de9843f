// Package scoring turns pair feature vectors into per-field and combined scores.
package scoring

import (
	"math"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Field weights for the combined score.
const (
	AmountWeight      = 0.4
	DescriptionWeight = 0.3
	DateWeight        = 0.3

	// DescriptionDateBoost is added when the ledger description names the bank date.
	DescriptionDateBoost = 0.2
)

// Amount bands below an exact match.
const (
	nearAmountScore  = 0.8
	closeAmountScore = 0.5
	closeAmountRatio = 0.05
	dateFloor        = 0.2

	// closeAmountSpan is how far the 0.5 band reaches past a wide 0.8 band.
	closeAmountSpan = 5
)

// Notes attached to candidates.
const (
	NoteAmountMismatch         = "Amount mismatch"
	NoteDateMismatch           = "Date mismatch"
	NoteLowDescription         = "Low description similarity"
	NoteSignMismatch           = "Sign mismatch"
	NoteDescriptionDateBoost   = "Description date boost"
	NoteManualReview           = "Manual review recommended"
	amountMismatchBelow        = 0.99
	dateMismatchBelow          = 0.9
	manualReviewDescriptionCut = 0.6
)

// Breakdown is the result of scoring one pair.
type Breakdown struct {
	ScoredBy    string
	Notes       []string
	Amount      float64
	Date        float64
	Description float64
	Combined    float64
	Boosted     bool
}

// Scorer scores a feature vector under a configuration.
type Scorer interface {
	Score(v model.FeatureVector, cfg model.ScoringConfig) (Breakdown, error)
}

// Heuristic is the fixed weighted scorer. The zero value is ready to use.
type Heuristic struct{}

// Score implements Scorer.
func (Heuristic) Score(v model.FeatureVector, cfg model.ScoringConfig) (Breakdown, error) {
	if err := cfg.Validate(); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		ScoredBy:    model.ScoredByHeuristic,
		Amount:      AmountScore(v, cfg),
		Date:        DateScore(v.DateDiffDays, cfg.DateToleranceDays),
		Description: v.DescriptionSimilarity / 100,
	}
	descriptionGated := b.Description < cfg.DescriptionSimilarityThreshold
	if descriptionGated {
		b.Description = 0
	}

	combined := AmountWeight*b.Amount + DescriptionWeight*b.Description + DateWeight*b.Date
	if b.Date < 1 && v.DescriptionDateMatch == 1 {
		combined += DescriptionDateBoost
		b.Boosted = true
	}
	b.Combined = clamp01(round(combined))
	b.Notes = notes(b, v, descriptionGated)
	return b, nil
}

// AmountScore grades the amount agreement of a pair. Equal amounts score 1
// even with a zero AmountTolerance.
func AmountScore(v model.FeatureVector, cfg model.ScoringConfig) float64 {
	near := cfg.AmountPercentageTolerance / 100
	switch {
	case v.AmountDiff == 0 || v.AmountDiff < cfg.AmountTolerance:
		return 1
	case v.AmountRatio <= near:
		return nearAmountScore
	case v.AmountRatio <= math.Max(closeAmountRatio, near*closeAmountSpan):
		return closeAmountScore
	default:
		return 0
	}
}

// DateScore decays linearly from 1 on the same day to dateFloor at window
// days, and is 0 beyond the window.
func DateScore(days float64, window int) float64 {
	switch {
	case days <= 0:
		return 1
	case days > float64(window):
		return 0
	default:
		return math.Max(dateFloor, 1-(days/float64(window))*(1-dateFloor))
	}
}

// ManualReview reports whether a breakdown should be flagged for a human.
func ManualReview(b Breakdown) bool {
	return b.Amount < amountMismatchBelow || b.Description < manualReviewDescriptionCut
}

func notes(b Breakdown, v model.FeatureVector, descriptionGated bool) []string {
	var out []string
	if b.Amount < amountMismatchBelow {
		out = append(out, NoteAmountMismatch)
	}
	if b.Date < dateMismatchBelow {
		out = append(out, NoteDateMismatch)
	}
	if descriptionGated {
		out = append(out, NoteLowDescription)
	}
	if v.SignedAmountMatch == 0 {
		out = append(out, NoteSignMismatch)
	}
	if b.Boosted {
		out = append(out, NoteDescriptionDateBoost)
	}
	if ManualReview(b) {
		out = append(out, NoteManualReview)
	}
	return out
}

// round drops float noise below 1e-10 so equal inputs compare exactly.
func round(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
