// Package features computes the pair feature vector shared by scoring,
// training and inference.
package features

import (
	"math"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// nearZero is the magnitude below which an amount has no meaningful sign.
var nearZero = decimal.NewFromFloat(0.01)

// Computer builds feature vectors. It holds no mutable state.
type Computer struct {
	similarity Similarity
}

// New creates a Computer using the given description similarity.
func New(similarity Similarity) *Computer {
	if similarity == nil {
		similarity = LevenshteinSimilarity{}
	}
	return &Computer{similarity: similarity}
}

// Default returns a Computer backed by LevenshteinSimilarity.
func Default() *Computer {
	return New(LevenshteinSimilarity{})
}

// Schema returns the ordered feature names produced by Compute.
func Schema() []string {
	return model.FeatureSchema()
}

// Compute builds the feature vector for a bank/ledger pair using the default computer.
func Compute(bank, ledger model.Transaction) (model.FeatureVector, error) {
	return Default().Compute(bank, ledger)
}

// Compute builds the feature vector for a bank/ledger pair.
func (c *Computer) Compute(bank, ledger model.Transaction) (model.FeatureVector, error) {
	if err := Validate(bank, model.SideBank); err != nil {
		return model.FeatureVector{}, err
	}
	if err := Validate(ledger, model.SideLedger); err != nil {
		return model.FeatureVector{}, err
	}

	bankAbs, ledgerAbs := bank.AbsAmount(), ledger.AbsAmount()
	diff := bankAbs.Sub(ledgerAbs).Abs()

	var amountRatio float64
	if larger := decimal.Max(bankAbs, ledgerAbs); !larger.IsZero() {
		amountRatio = diff.Div(larger).InexactFloat64()
	}

	days := math.Abs(bank.Day().Sub(ledger.Day()).Hours() / 24)
	days = math.Round(days)

	v := model.FeatureVector{
		AmountDiff:            diff.InexactFloat64(),
		AmountRatio:           amountRatio,
		DateDiffDays:          days,
		DescriptionSimilarity: clamp(c.similarity.Similarity(bank.Description, ledger.Description), 0, 100),
		SignedAmountMatch:     flag(signsAgree(bank.Amount, ledger.Amount)),
		SameDay:               flag(days == 0),
		DescriptionDateMatch:  flag(mentionsDateNear(ledger.Description, bank.Day())),
	}
	return v, nil
}

// Validate checks that a transaction can be scored.
func Validate(txn model.Transaction, side model.Side) error {
	if txn.ID == "" {
		return common.NewInvalidInput(string(side), "", "missing transaction id")
	}
	if txn.Date.IsZero() {
		return common.NewInvalidInput(string(side), txn.ID, "missing date")
	}
	return nil
}

// signsAgree treats amounts below one cent as matching either sign.
func signsAgree(a, b decimal.Decimal) bool {
	if a.Abs().LessThan(nearZero) || b.Abs().LessThan(nearZero) {
		return true
	}
	return a.Sign() == b.Sign()
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
