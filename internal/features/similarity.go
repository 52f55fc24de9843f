package features

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores two descriptions on a 0..100 scale.
type Similarity interface {
	Similarity(a, b string) float64
}

// LevenshteinSimilarity compares normalised descriptions by edit distance,
// taking the better of a direct and a token-sorted comparison so word order
// does not matter.
type LevenshteinSimilarity struct{}

// Similarity implements Similarity.
func (LevenshteinSimilarity) Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" && nb == "" {
		// Nothing but digits or punctuation on both sides; compare the raw text.
		na = strings.ToLower(strings.TrimSpace(a))
		nb = strings.ToLower(strings.TrimSpace(b))
		if na == nb {
			return 100
		}
	}
	if na == "" || nb == "" {
		return 0
	}

	direct := ratio(na, nb)
	sorted := ratio(tokenSort(na), tokenSort(nb))
	if sorted > direct {
		return sorted
	}
	return direct
}

// Normalize lower-cases s, replaces every run of non-letters with a single
// space and trims the result.
func Normalize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return strings.Join(words, " ")
}

func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func ratio(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}
