// Package input reads normalised bank and ledger transaction lists.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout:
//
//	transactions:
//	  - id: B1
//	    date: 2024-05-10
//	    description: Payment ACME Ltd
//	    amount: "-250.00"
//	    reference: INV-1042
type File struct {
	Transactions []Record `yaml:"transactions"`
}

// Record is one transaction as written in a file. Amounts and dates are kept
// as text so no precision is lost before conversion.
type Record struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Reference   string `yaml:"reference,omitempty"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// LoadFile reads the transactions for one side from path.
func LoadFile(path string, side model.Side) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s transactions: %w", side, err)
	}
	defer func() { _ = f.Close() }()

	txns, err := Decode(f, side)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return txns, nil
}

// Decode parses a transaction file. Every record must have an id, a date
// and an amount; any malformed record fails the whole file.
func Decode(r io.Reader, side model.Side) ([]model.Transaction, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse %s transactions: %w", common.ErrInvalidInput, side, err)
	}

	txns := make([]model.Transaction, 0, len(file.Transactions))
	for i, rec := range file.Transactions {
		txn, err := rec.Transaction(side)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// Transaction converts the record to a model transaction.
func (r Record) Transaction(side model.Side) (model.Transaction, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return model.Transaction{}, common.NewInvalidInput(string(side), "", "missing id")
	}

	date, err := parseDate(r.Date)
	if err != nil {
		return model.Transaction{}, common.NewInvalidInput(string(side), id, err.Error())
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return model.Transaction{}, common.NewInvalidInput(string(side), id, fmt.Sprintf("invalid amount %q", r.Amount))
	}

	return model.Transaction{
		ID:          id,
		Date:        date,
		Description: strings.TrimSpace(r.Description),
		Amount:      amount,
		Reference:   strings.TrimSpace(r.Reference),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Encode writes transactions in the file layout Decode reads.
func Encode(w io.Writer, txns []model.Transaction) error {
	file := File{Transactions: make([]Record, len(txns))}
	for i, t := range txns {
		file.Transactions[i] = Record{
			ID:          t.ID,
			Date:        t.Date.Format("2006-01-02"),
			Description: t.Description,
			Amount:      t.Amount.String(),
			Reference:   t.Reference,
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}
	return enc.Close()
}
