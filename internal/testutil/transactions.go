package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// Tx builds a transaction from literal test values. It panics on malformed
// fixtures so table tests stay compact.
//
// Example:
//
//	bank := testutil.Tx("B1", "2024-05-10", "Payment ACME Ltd", "-250.00")
func Tx(id, date, description, amount string) model.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(fmt.Sprintf("testutil.Tx: bad date %q: %v", date, err))
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		panic(fmt.Sprintf("testutil.Tx: bad amount %q: %v", amount, err))
	}
	return model.Transaction{
		ID:          id,
		Date:        d,
		Description: description,
		Amount:      a,
	}
}

// Series builds count transactions with ids prefix-1..prefix-N on consecutive
// days starting at start, each with a distinct amount.
func Series(prefix, start string, count int) []model.Transaction {
	first := Tx(prefix+"-0", start, "", "0")
	out := make([]model.Transaction, count)
	for i := range out {
		out[i] = model.Transaction{
			ID:          fmt.Sprintf("%s-%d", prefix, i+1),
			Date:        first.Date.AddDate(0, 0, i),
			Description: fmt.Sprintf("Invoice payment %s", string(rune('a'+i%26))),
			Amount:      decimal.NewFromInt(int64(100 + i*37)),
		}
	}
	return out
}
