// Package feedback collects user decisions on match candidates as labelled
// training examples.
package feedback

import (
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Store accumulates feedback records keyed by bank and ledger id. Recording
// the same pair again replaces its label, keeping its original position.
// The zero value is an empty store ready for use.
type Store struct {
	now     func() time.Time
	index   map[model.PairKey]int
	records []model.FeedbackRecord
	mu      sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:   time.Now,
		index: make(map[model.PairKey]int),
	}
}

// Record stores the user's decision on candidate and returns the resulting record.
func (s *Store) Record(candidate model.MatchCandidate, confirmed bool) model.FeedbackRecord {
	label := model.LabelRejected
	if confirmed {
		label = model.LabelMatched
	}
	r := model.FeedbackRecord{
		RecordedAt: s.clock()().UTC(),
		BankID:     candidate.Bank.ID,
		LedgerID:   candidate.Ledger.ID,
		Schema:     model.FeatureSchema(),
		Features:   candidate.Features,
		Label:      label,
	}
	s.Add(r)
	return r
}

func (s *Store) clock() func() time.Time {
	if s.now == nil {
		return time.Now
	}
	return s.now
}

// Add stores a prepared record, replacing any earlier record for the same pair.
func (s *Store) Add(r model.FeedbackRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = make(map[model.PairKey]int)
	}
	if i, ok := s.index[r.Key()]; ok {
		s.records[i] = r
		return
	}
	s.index[r.Key()] = len(s.records)
	s.records = append(s.records, r)
}

// Load adds records in order, as Add does for each.
func (s *Store) Load(records []model.FeedbackRecord) {
	for _, r := range records {
		s.Add(r)
	}
}

// Drain returns all records in first-recorded order and empties the store.
func (s *Store) Drain() []model.FeedbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.records
	s.records = nil
	s.index = make(map[model.PairKey]int)
	return out
}

// Snapshot returns a copy of the current records without clearing them.
func (s *Store) Snapshot() []model.FeedbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.FeedbackRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of distinct pairs recorded.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RetrainPolicy decides when accumulated feedback should trigger training.
type RetrainPolicy struct {
	Threshold int // zero disables automatic retraining
}

// Due reports whether pending new samples warrant a retrain.
func (p RetrainPolicy) Due(pending int) bool {
	return p.Threshold > 0 && pending >= p.Threshold
}
