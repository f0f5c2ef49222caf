package matching

import (
	"fmt"

	"github.com/kartlab/catalogd/internal/domain"
)

// Classification buckets a match confidence.
type Classification string

const (
	// ClassAutoMatch: same item, variant update only.
	ClassAutoMatch Classification = "auto-match"
	// ClassNeedsReview: a plausible match is attached for a human to judge.
	ClassNeedsReview Classification = "needs-review"
	// ClassNewItem: nothing close enough; proposed as a brand-new entry.
	ClassNewItem Classification = "new-item"
)

// Thresholds partition [0,1] into the three classification buckets with no
// gaps or overlaps: [AutoMatch,1] auto, [Review,AutoMatch) review,
// [0,Review) new.
type Thresholds struct {
	AutoMatch float64
	Review    float64
}

// DefaultThresholds returns the production cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoMatch: 0.90, Review: 0.60}
}

// tieEpsilon is the score window within which two candidates are
// considered tied and the documented tie-break applies.
const tieEpsilon = 0.01

// MatchResult is the matcher's verdict for one normalized item.
// Confidence is the chosen candidate's own score, so it always describes
// Best even when the tie-break passed over a fractionally higher scorer.
type MatchResult struct {
	Best           *domain.CatalogItem
	Confidence     float64
	Classification Classification
	Reason         string
}

// Matcher finds the best-scoring catalog item for a normalized candidate
// and classifies it. An empty or missing index degrades to new-item; the
// matcher never errors.
type Matcher struct {
	scorer     *Scorer
	thresholds Thresholds
}

// NewMatcher creates a matcher over the given scorer and thresholds.
func NewMatcher(scorer *Scorer, thresholds Thresholds) *Matcher {
	return &Matcher{scorer: scorer, thresholds: thresholds}
}

// Match scans the candidate's category partition and retains the maximum
// score. Ties within 0.01 prefer the candidate with a populated price
// (more complete entries are more likely correct), then the
// lexicographically smaller id for determinism.
func (m *Matcher) Match(item domain.NormalizedItem, index *Index) MatchResult {
	if index == nil || index.Len() == 0 {
		return MatchResult{Classification: ClassNewItem}
	}

	partition := index.Category(item.Category)
	if len(partition) == 0 {
		return MatchResult{Classification: ClassNewItem}
	}

	scores := make([]float64, len(partition))
	maxScore := 0.0
	for i, candidate := range partition {
		scores[i] = m.scorer.Score(item, candidate)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	// Among candidates within the tie window of the maximum, apply the
	// documented tie-break. Confidence and classification follow the
	// chosen candidate's score, not the window maximum.
	var best *domain.CatalogItem
	bestScore := 0.0
	for i := range partition {
		if scores[i] < maxScore-tieEpsilon {
			continue
		}
		if best == nil || preferOver(partition[i], *best) {
			best = &partition[i]
			bestScore = scores[i]
		}
	}

	result := MatchResult{Best: best, Confidence: bestScore}
	switch {
	case bestScore >= m.thresholds.AutoMatch:
		result.Classification = ClassAutoMatch
		result.Reason = fmt.Sprintf("auto-match at %.2f against %q", bestScore, best.Name)
	case bestScore >= m.thresholds.Review:
		result.Classification = ClassNeedsReview
		result.Reason = fmt.Sprintf("possible match at %.2f against %q", bestScore, best.Name)
	default:
		result.Classification = ClassNewItem
		result.Best = nil
		result.Confidence = 0
	}
	return result
}

// preferOver decides the documented tie-break between two candidates whose
// scores fall within tieEpsilon of each other.
func preferOver(candidate, current domain.CatalogItem) bool {
	candidateHasPrice := candidate.Price != nil
	currentHasPrice := current.Price != nil
	if candidateHasPrice != currentHasPrice {
		return candidateHasPrice
	}
	return candidate.ID.String() < current.ID.String()
}
