// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which collection a transaction came from.
type Side string

// Transaction sides.
const (
	SideBank   Side = "bank"
	SideLedger Side = "ledger"
)

// Transaction is a single normalised bank or ledger entry.
// Debits are positive and credits negative.
type Transaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	ID          string
	Description string
	Reference   string // optional external reference
}

// Day returns the calendar date of the transaction at UTC midnight.
// Time of day and location are ignored.
func (t Transaction) Day() time.Time {
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AbsAmount returns the magnitude of the amount.
func (t Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}
