package matching

import (
	"strings"
	"unicode"

	"github.com/kartlab/catalogd/internal/domain"
)

// Weights tunes the three similarity terms. Name carries the most
// discriminating signal; brand is a strong but not definitive filter
// (private-label resellers); numeric specs catch reworded near-duplicates.
type Weights struct {
	Name    float64
	Brand   float64
	Numeric float64
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{Name: 0.5, Brand: 0.2, Numeric: 0.3}
}

// stopWords are tokens with no discriminating value. Deliberately short:
// unit-ish tokens like "cc" stay significant because "212cc" vs "212"
// should register as a wording difference, not an exact match.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "for": {}, "with": {}, "and": {}, "of": {},
}

// Scorer computes a bounded similarity score in [0,1] between a normalized
// candidate and a catalog item. Deterministic: no randomness, no I/O.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given term weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score combines token-set name similarity, binary brand equality, and
// bounded numeric-spec proximity. Terms with no data on either side are
// excluded and the remaining weights renormalized rather than penalized.
func (s *Scorer) Score(item domain.NormalizedItem, candidate domain.CatalogItem) float64 {
	total := 0.0
	weightSum := 0.0

	total += s.weights.Name * tokenSetSimilarity(item.Name, candidate.Name)
	weightSum += s.weights.Name

	if brandScore, ok := brandEquality(item.Brand, candidate.Brand); ok {
		total += s.weights.Brand * brandScore
		weightSum += s.weights.Brand
	}

	if numericScore, ok := numericProximity(item, candidate); ok {
		total += s.weights.Numeric * numericScore
		weightSum += s.weights.Numeric
	}

	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// tokenSetSimilarity is Jaccard similarity over lowercased alphanumeric
// tokens after stop-word removal.
func tokenSetSimilarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for token := range ta {
		if _, ok := tb[token]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, skip := stopWords[field]; skip {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// brandEquality is binary. Both sides empty means the term carries no
// signal at all, so it is excluded rather than scored.
func brandEquality(a, b string) (float64, bool) {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 0, false
	}
	if a == b {
		return 1, true
	}
	return 0, true
}

// numericProximity averages a bounded relative-difference decay over the
// comparable numeric fields present on both sides. A 5% difference scores
// near 1.0; anything past 50% scores 0. Fields missing on either side are
// excluded, not penalized.
func numericProximity(item domain.NormalizedItem, candidate domain.CatalogItem) (float64, bool) {
	sum := 0.0
	count := 0

	if item.Price != nil && candidate.Price != nil {
		sum += proximity(*item.Price, *candidate.Price)
		count++
	}

	for _, key := range domain.NumericSpecKeys(candidate.Category) {
		a, aOK := item.Specs[key]
		b, bOK := candidate.Spec(key)
		if !aOK || !bOK {
			continue
		}
		sum += proximity(a, b)
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func proximity(a, b float64) float64 {
	if a == b {
		return 1
	}
	max := a
	if b > max {
		max = b
	}
	if max <= 0 {
		return 0
	}
	rel := (a - b) / max
	if rel < 0 {
		rel = -rel
	}
	rel /= 0.5
	if rel > 1 {
		rel = 1
	}
	return 1 - rel*rel
}
