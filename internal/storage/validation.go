package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidStatus    = errors.New("invalid match status")
	ErrInvalidCandidate = errors.New("invalid match candidate")
	ErrInvalidFeedback  = errors.New("invalid feedback record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRun(run *model.MatchRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	return validateString(run.ID, "run.ID")
}

func validateCandidate(c *model.MatchCandidate) error {
	if c.Bank.ID == "" || c.Ledger.ID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalidCandidate)
	}
	if c.Bank.Date.IsZero() || c.Ledger.Date.IsZero() {
		return fmt.Errorf("%w: %s/%s missing date", ErrInvalidCandidate, c.Bank.ID, c.Ledger.ID)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, c.Status)
	}
	if c.ConfidenceScore < 0 || c.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidCandidate)
	}
	return nil
}

func validateFeedback(r *model.FeedbackRecord) error {
	if r.BankID == "" || r.LedgerID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalidFeedback)
	}
	if r.Label != model.LabelMatched && r.Label != model.LabelRejected {
		return fmt.Errorf("%w: label %d", ErrInvalidFeedback, r.Label)
	}
	if len(r.Schema) == 0 {
		return fmt.Errorf("%w: %s/%s missing feature schema", ErrInvalidFeedback, r.BankID, r.LedgerID)
	}
	return nil
}
