// Package matcher selects the best ledger match for each bank transaction.
package matcher

import (
	"fmt"
	"sort"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/features"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/scoring"
)

// Selector runs the greedy best-match scan. It holds no per-run state.
type Selector struct {
	features *features.Computer
}

// New creates a Selector using the given feature computer.
func New(computer *features.Computer) *Selector {
	if computer == nil {
		computer = features.Default()
	}
	return &Selector{features: computer}
}

// Select returns at most one candidate per bank transaction, the best
// scoring ledger transaction when it reaches cfg.ScoreThreshold. A zero
// score never matches.
//
// Ties keep the first ledger transaction seen. With UniquenessNone a ledger
// transaction may be chosen by several bank transactions and results follow
// bank input order. With UniquenessOneToOne conflicts are resolved by
// descending confidence and results are ordered by confidence.
func (s *Selector) Select(bank, ledger []model.Transaction, scorer scoring.Scorer, cfg model.ScoringConfig) ([]model.MatchCandidate, error) {
	if err := s.check(bank, ledger, cfg); err != nil {
		return nil, err
	}

	if cfg.Uniqueness == model.UniquenessOneToOne {
		pairs, err := s.pairs(bank, ledger, scorer, cfg)
		if err != nil {
			return nil, err
		}
		return ResolveOneToOne(pairs), nil
	}

	results := make([]model.MatchCandidate, 0, len(bank))
	for _, b := range bank {
		var (
			best  model.MatchCandidate
			found bool
		)
		for _, l := range ledger {
			c, err := s.score(b, l, scorer, cfg)
			if err != nil {
				return nil, err
			}
			if !found || c.ConfidenceScore > best.ConfidenceScore {
				best, found = c, true
			}
		}
		if found && accepted(best, cfg) {
			results = append(results, best)
		}
	}

	common.LogDebug("Selected matches", common.Fields{
		"bank":    len(bank),
		"ledger":  len(ledger),
		"matches": len(results),
	})
	return results, nil
}

// Pairs returns every pair reaching cfg.ScoreThreshold in bank then ledger
// input order. It is the input to ResolveOneToOne when a run is chunked.
func (s *Selector) Pairs(bank, ledger []model.Transaction, scorer scoring.Scorer, cfg model.ScoringConfig) ([]model.MatchCandidate, error) {
	if err := s.check(bank, ledger, cfg); err != nil {
		return nil, err
	}
	return s.pairs(bank, ledger, scorer, cfg)
}

func (s *Selector) pairs(bank, ledger []model.Transaction, scorer scoring.Scorer, cfg model.ScoringConfig) ([]model.MatchCandidate, error) {
	var out []model.MatchCandidate
	for _, b := range bank {
		for _, l := range ledger {
			c, err := s.score(b, l, scorer, cfg)
			if err != nil {
				return nil, err
			}
			if accepted(c, cfg) {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// ResolveOneToOne accepts pairs by descending confidence, skipping any pair
// whose bank or ledger transaction is already used. Equal confidences keep
// their input order.
func ResolveOneToOne(pairs []model.MatchCandidate) []model.MatchCandidate {
	sorted := make([]model.MatchCandidate, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ConfidenceScore > sorted[j].ConfidenceScore
	})

	usedBank := make(map[string]bool)
	usedLedger := make(map[string]bool)
	out := make([]model.MatchCandidate, 0, len(sorted))
	for _, c := range sorted {
		if usedBank[c.Bank.ID] || usedLedger[c.Ledger.ID] {
			continue
		}
		usedBank[c.Bank.ID] = true
		usedLedger[c.Ledger.ID] = true
		out = append(out, c)
	}
	return out
}

func (s *Selector) score(b, l model.Transaction, scorer scoring.Scorer, cfg model.ScoringConfig) (model.MatchCandidate, error) {
	v, err := s.features.Compute(b, l)
	if err != nil {
		return model.MatchCandidate{}, err
	}
	breakdown, err := scorer.Score(v, cfg)
	if err != nil {
		return model.MatchCandidate{}, fmt.Errorf("failed to score %s/%s: %w", b.ID, l.ID, err)
	}
	return NewCandidate(b, l, v, breakdown, cfg), nil
}

// NewCandidate builds a pending candidate from a scored pair.
func NewCandidate(b, l model.Transaction, v model.FeatureVector, breakdown scoring.Breakdown, cfg model.ScoringConfig) model.MatchCandidate {
	return model.MatchCandidate{
		Bank:             b,
		Ledger:           l,
		Status:           model.StatusPending,
		Band:             cfg.Band(breakdown.Combined),
		ScoredBy:         breakdown.ScoredBy,
		Notes:            breakdown.Notes,
		Features:         v,
		AmountScore:      breakdown.Amount,
		DateScore:        breakdown.Date,
		DescriptionScore: breakdown.Description,
		ConfidenceScore:  breakdown.Combined,
		Boosted:          breakdown.Boosted,
	}
}

// check validates a run before any scoring so malformed data fails the
// whole run instead of being skipped.
func (s *Selector) check(bank, ledger []model.Transaction, cfg model.ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ValidateInputs(bank, ledger); err != nil {
		return err
	}
	if combos := int64(len(bank)) * int64(len(ledger)); combos > int64(cfg.MaxCombinations) {
		return fmt.Errorf("%w: %d bank x %d ledger = %d exceeds limit %d",
			common.ErrTooManyCombinations, len(bank), len(ledger), combos, cfg.MaxCombinations)
	}
	return nil
}

// ValidateInputs checks that both sides are non-empty and every transaction
// has an id, a date and an id unique within its side.
func ValidateInputs(bank, ledger []model.Transaction) error {
	if len(bank) == 0 {
		return common.NewInvalidInput(string(model.SideBank), "", "at least one bank transaction is required")
	}
	if len(ledger) == 0 {
		return common.NewInvalidInput(string(model.SideLedger), "", "at least one ledger transaction is required")
	}
	if err := validateSide(bank, model.SideBank); err != nil {
		return err
	}
	return validateSide(ledger, model.SideLedger)
}

// accepted reports whether c reaches the threshold. A zero score is never a
// match, even with a zero threshold.
func accepted(c model.MatchCandidate, cfg model.ScoringConfig) bool {
	return c.ConfidenceScore > 0 && c.ConfidenceScore >= cfg.ScoreThreshold
}

func validateSide(txns []model.Transaction, side model.Side) error {
	seen := make(map[string]bool, len(txns))
	for _, txn := range txns {
		if err := features.Validate(txn, side); err != nil {
			return err
		}
		if seen[txn.ID] {
			return common.NewInvalidInput(string(side), txn.ID, "duplicate transaction id")
		}
		seen[txn.ID] = true
	}
	return nil
}
