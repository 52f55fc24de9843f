package model

import "time"

// Feedback labels.
const (
	LabelRejected = 0
	LabelMatched  = 1
)

// FeedbackRecord is a labelled training example produced by a user decision.
type FeedbackRecord struct {
	RecordedAt time.Time
	BankID     string
	LedgerID   string
	Schema     []string
	Features   FeatureVector
	Label      int
}

// Key identifies the pair the record was given for.
func (r FeedbackRecord) Key() PairKey {
	return PairKey{BankID: r.BankID, LedgerID: r.LedgerID}
}

// Confirmed reports whether the record is a positive example.
func (r FeedbackRecord) Confirmed() bool {
	return r.Label == LabelMatched
}

// TrainingRun records one successful classifier training.
type TrainingRun struct {
	TrainedAt time.Time
	ID        int64
	Samples   int
	Positives int
	Negatives int
	// TrainingAccuracy is measured on the records the model was trained on.
	TrainingAccuracy float64
}
