// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors.
	ErrInvalidInput        = errors.New("invalid input")
	ErrTooManyCombinations = errors.New("too many combinations")

	// Model errors.
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrModelPersistence         = errors.New("model persistence failed")
	ErrFeatureSchemaMismatch    = errors.New("feature schema mismatch")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InvalidInputError names the transaction that could not be used.
type InvalidInputError struct {
	TransactionID string
	Side          string
	Reason        string
}

func (e *InvalidInputError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s transaction %q: %s", ErrInvalidInput, e.Side, e.TransactionID, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInvalidInput creates an InvalidInputError for the given transaction.
func NewInvalidInput(side, transactionID, reason string) error {
	return &InvalidInputError{
		TransactionID: transactionID,
		Side:          side,
		Reason:        reason,
	}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
