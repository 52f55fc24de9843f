package model

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

// Uniqueness controls whether a ledger transaction may be chosen by more
// than one bank transaction in a single run.
type Uniqueness string

// Uniqueness policies.
const (
	UniquenessNone     Uniqueness = "none"
	UniquenessOneToOne Uniqueness = "one_to_one"
)

// ScoringConfig is passed explicitly to every scoring and selection call.
type ScoringConfig struct {
	Uniqueness                     Uniqueness
	AmountTolerance                float64 // absolute difference treated as exact
	AmountPercentageTolerance      float64 // percent, upper bound of the 0.8 amount band
	DateToleranceDays              int     // linear decay window
	DescriptionSimilarityThreshold float64 // 0..1 gate on description score
	ScoreThreshold                 float64
	HighConfidenceThreshold        float64
	MediumConfidenceThreshold      float64
	MaxCombinations                int
	RetrainThreshold               int
}

// DefaultScoringConfig returns the default scoring configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Uniqueness:                     UniquenessNone,
		AmountTolerance:                0.01,
		AmountPercentageTolerance:      1.0,
		DateToleranceDays:              7,
		DescriptionSimilarityThreshold: 0.6,
		ScoreThreshold:                 0.7,
		HighConfidenceThreshold:        0.9,
		MediumConfidenceThreshold:      0.7,
		MaxCombinations:                50000,
		RetrainThreshold:               10,
	}
}

// Validate checks the configuration for values the scorer cannot use.
func (c ScoringConfig) Validate() error {
	if c.AmountTolerance < 0 {
		return fmt.Errorf("%w: amount tolerance must not be negative", common.ErrInvalidConfig)
	}
	if c.AmountPercentageTolerance < 0 {
		return fmt.Errorf("%w: amount percentage tolerance must not be negative", common.ErrInvalidConfig)
	}
	if c.DateToleranceDays < 0 {
		return fmt.Errorf("%w: date tolerance must not be negative", common.ErrInvalidConfig)
	}
	thresholds := []struct {
		name  string
		value float64
	}{
		{"description similarity threshold", c.DescriptionSimilarityThreshold},
		{"score threshold", c.ScoreThreshold},
		{"high confidence threshold", c.HighConfidenceThreshold},
		{"medium confidence threshold", c.MediumConfidenceThreshold},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %v", common.ErrInvalidConfig, th.name, th.value)
		}
	}
	if c.HighConfidenceThreshold < c.MediumConfidenceThreshold {
		return fmt.Errorf("%w: high confidence threshold %v is below medium %v",
			common.ErrInvalidConfig, c.HighConfidenceThreshold, c.MediumConfidenceThreshold)
	}
	if c.MaxCombinations <= 0 {
		return fmt.Errorf("%w: max combinations must be positive", common.ErrInvalidConfig)
	}
	if c.RetrainThreshold < 0 {
		return fmt.Errorf("%w: retrain threshold must not be negative", common.ErrInvalidConfig)
	}
	switch c.Uniqueness {
	case UniquenessNone, UniquenessOneToOne:
	default:
		return fmt.Errorf("%w: unknown uniqueness policy %q", common.ErrInvalidConfig, c.Uniqueness)
	}
	return nil
}

// Band returns the confidence band for score.
func (c ScoringConfig) Band(score float64) ConfidenceBand {
	switch {
	case score >= c.HighConfidenceThreshold:
		return BandHigh
	case score >= c.MediumConfidenceThreshold:
		return BandMedium
	default:
		return BandLow
	}
}
