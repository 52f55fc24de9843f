package model

import "time"

// MatchStatus tracks a candidate through review.
type MatchStatus string

// Match status constants.
const (
	StatusPending  MatchStatus = "PENDING"
	StatusMatched  MatchStatus = "MATCHED"
	StatusRejected MatchStatus = "REJECTED"
	StatusReviewed MatchStatus = "REVIEWED"
)

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusRejected, StatusReviewed:
		return true
	}
	return false
}

// ConfidenceBand buckets a confidence score for review.
type ConfidenceBand string

// Confidence bands.
const (
	BandHigh   ConfidenceBand = "HIGH"
	BandMedium ConfidenceBand = "MEDIUM"
	BandLow    ConfidenceBand = "LOW"
)

// Scorer names recorded on candidates.
const (
	ScoredByHeuristic  = "heuristic"
	ScoredByClassifier = "classifier"
)

// MatchCandidate is a proposed pairing of one bank and one ledger transaction.
type MatchCandidate struct {
	Bank             Transaction
	Ledger           Transaction
	Status           MatchStatus
	Band             ConfidenceBand
	ScoredBy         string
	Notes            []string
	Features         FeatureVector
	AmountScore      float64
	DateScore        float64
	DescriptionScore float64
	ConfidenceScore  float64
	Boosted          bool
}

// Key identifies the pair independent of scores.
func (c MatchCandidate) Key() PairKey {
	return PairKey{BankID: c.Bank.ID, LedgerID: c.Ledger.ID}
}

// PairKey identifies a bank/ledger pairing.
type PairKey struct {
	BankID   string
	LedgerID string
}

// MatchRun describes one reconciliation run.
type MatchRun struct {
	StartedAt   time.Time
	ID          string
	ScoredBy    string
	BankCount   int
	LedgerCount int
	MatchCount  int
}
