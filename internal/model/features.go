package model

// FeatureVector is the fixed, ordered set of pair features shared by the
// heuristic scorer, the classifier, and stored feedback.
type FeatureVector struct {
	AmountDiff            float64 // ||bank| - |ledger||
	AmountRatio           float64 // AmountDiff relative to the larger magnitude
	DateDiffDays          float64
	DescriptionSimilarity float64 // 0..100
	SignedAmountMatch     float64 // 1 or 0
	SameDay               float64 // 1 or 0
	DescriptionDateMatch  float64 // 1 or 0
}

// Feature names in vector order.
const (
	FeatureAmountDiff            = "amount_diff"
	FeatureAmountRatio           = "amount_ratio"
	FeatureDateDiff              = "date_diff"
	FeatureDescriptionSimilarity = "description_similarity"
	FeatureSignedAmountMatch     = "signed_amount_match"
	FeatureSameDay               = "same_day"
	FeatureDescriptionDateMatch  = "description_date_match"
)

var featureSchema = []string{
	FeatureAmountDiff,
	FeatureAmountRatio,
	FeatureDateDiff,
	FeatureDescriptionSimilarity,
	FeatureSignedAmountMatch,
	FeatureSameDay,
	FeatureDescriptionDateMatch,
}

// FeatureSchema returns the ordered feature names. The returned slice is a copy.
func FeatureSchema() []string {
	out := make([]string, len(featureSchema))
	copy(out, featureSchema)
	return out
}

// Values returns the feature values in schema order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.AmountDiff,
		v.AmountRatio,
		v.DateDiffDays,
		v.DescriptionSimilarity,
		v.SignedAmountMatch,
		v.SameDay,
		v.DescriptionDateMatch,
	}
}

// SchemaEqual reports whether names matches the current feature schema exactly.
func SchemaEqual(names []string) bool {
	if len(names) != len(featureSchema) {
		return false
	}
	for i, name := range names {
		if featureSchema[i] != name {
			return false
		}
	}
	return true
}
