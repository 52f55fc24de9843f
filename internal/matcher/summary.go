package matcher

import (
	"sort"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Summary aggregates the outcome of a run.
type Summary struct {
	ConflictedLedgerIDs []string // ledger ids chosen by more than one bank transaction
	BankCount           int
	LedgerCount         int
	Matched             int
	High                int
	Medium              int
	Low                 int
	UnmatchedBank       int
	UnmatchedLedger     int
	MatchRate           float64 // matched bank transactions / bank count
}

// Summarize computes run statistics for candidates selected from bankCount
// bank and ledgerCount ledger transactions.
func Summarize(candidates []model.MatchCandidate, bankCount, ledgerCount int) Summary {
	s := Summary{
		BankCount:   bankCount,
		LedgerCount: ledgerCount,
	}

	banks := make(map[string]bool)
	ledgers := make(map[string]int)
	for _, c := range candidates {
		switch c.Band {
		case model.BandHigh:
			s.High++
		case model.BandMedium:
			s.Medium++
		default:
			s.Low++
		}
		banks[c.Bank.ID] = true
		ledgers[c.Ledger.ID]++
	}

	s.Matched = len(banks)
	s.UnmatchedBank = bankCount - len(banks)
	s.UnmatchedLedger = ledgerCount - len(ledgers)
	if bankCount > 0 {
		s.MatchRate = float64(s.Matched) / float64(bankCount)
	}

	for id, n := range ledgers {
		if n > 1 {
			s.ConflictedLedgerIDs = append(s.ConflictedLedgerIDs, id)
		}
	}
	sort.Strings(s.ConflictedLedgerIDs)
	return s
}
