package classifier

import (
	"math"
	"strconv"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Amount and date cut points for token encoding. They are fixed rather than
// taken from ScoringConfig so a trained model does not depend on run settings.
const (
	exactAmountDiff  = 0.01
	nearAmountRatio  = 0.01
	closeAmountRatio = 0.05
)

var dateBuckets = []struct {
	label string
	upTo  float64
}{
	{"0", 0},
	{"1", 1},
	{"2", 2},
	{"3", 3},
	{"4-7", 7},
	{"8-14", 14},
	{"15-30", 30},
}

// tokens encodes a feature vector as the discrete words the naive Bayes
// model learns from. Every vector yields one token per feature.
func tokens(v model.FeatureVector) []string {
	return []string{
		"amount:" + amountBand(v),
		"date:" + dateBucket(v.DateDiffDays),
		"desc:" + strconv.Itoa(descriptionDecile(v.DescriptionSimilarity)),
		"sign:" + bit(v.SignedAmountMatch),
		"sameday:" + bit(v.SameDay),
		"descdate:" + bit(v.DescriptionDateMatch),
	}
}

// vocabulary lists every token tokens can produce.
func vocabulary() []string {
	var out []string
	for _, band := range []string{"exact", "near", "close", "far"} {
		out = append(out, "amount:"+band)
	}
	for _, b := range dateBuckets {
		out = append(out, "date:"+b.label)
	}
	out = append(out, "date:30+")
	for d := 0; d <= 10; d++ {
		out = append(out, "desc:"+strconv.Itoa(d))
	}
	for _, prefix := range []string{"sign:", "sameday:", "descdate:"} {
		out = append(out, prefix+"0", prefix+"1")
	}
	return out
}

func amountBand(v model.FeatureVector) string {
	switch {
	case v.AmountDiff < exactAmountDiff:
		return "exact"
	case v.AmountRatio <= nearAmountRatio:
		return "near"
	case v.AmountRatio <= closeAmountRatio:
		return "close"
	default:
		return "far"
	}
}

func dateBucket(days float64) string {
	for _, b := range dateBuckets {
		if days <= b.upTo {
			return b.label
		}
	}
	return "30+"
}

func descriptionDecile(similarity float64) int {
	d := int(math.Floor(similarity / 10))
	if d < 0 {
		return 0
	}
	if d > 10 {
		return 10
	}
	return d
}

func bit(f float64) string {
	if f >= 0.5 {
		return "1"
	}
	return "0"
}
