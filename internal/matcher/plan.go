package matcher

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

// Chunk is a half-open range of bank transaction indices.
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of bank transactions in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Plan splits bankCount rows into chunks that each stay within
// maxCombinations when compared against every ledger transaction.
func Plan(bankCount, ledgerCount, maxCombinations int) ([]Chunk, error) {
	if maxCombinations <= 0 {
		return nil, fmt.Errorf("%w: max combinations must be positive", common.ErrInvalidConfig)
	}
	if bankCount <= 0 {
		return nil, nil
	}
	if ledgerCount <= 0 {
		return []Chunk{{Start: 0, End: bankCount}}, nil
	}

	rows := maxCombinations / ledgerCount
	if rows == 0 {
		return nil, fmt.Errorf("%w: a single bank transaction against %d ledger transactions exceeds limit %d",
			common.ErrTooManyCombinations, ledgerCount, maxCombinations)
	}

	chunks := make([]Chunk, 0, (bankCount+rows-1)/rows)
	for start := 0; start < bankCount; start += rows {
		end := start + rows
		if end > bankCount {
			end = bankCount
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
	}
	return chunks, nil
}
