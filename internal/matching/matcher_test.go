package matching

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kartlab/catalogd/internal/domain"
)

func newTestMatcher() *Matcher {
	return NewMatcher(NewScorer(DefaultWeights()), DefaultThresholds())
}

func TestMatchEmptyIndexYieldsNewItem(t *testing.T) {
	matcher := newTestMatcher()
	item := domain.NormalizedItem{Name: "Predator 212cc Hemi", Brand: "Predator", Category: "engine"}

	for _, index := range []*Index{nil, NewIndex(nil)} {
		result := matcher.Match(item, index)
		if result.Classification != ClassNewItem {
			t.Fatalf("expected new-item, got %s", result.Classification)
		}
		if result.Best != nil || result.Confidence != 0 {
			t.Fatalf("new-item must carry no candidate, got %+v", result)
		}
	}
}

func TestMatchExactItemAutoMatches(t *testing.T) {
	matcher := newTestMatcher()

	existing := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(165.00),
	}
	index := NewIndex([]domain.CatalogItem{existing})

	item := domain.NormalizedItem{
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(165.00),
	}

	result := matcher.Match(item, index)
	if result.Classification != ClassAutoMatch {
		t.Fatalf("expected auto-match, got %s at %f", result.Classification, result.Confidence)
	}
	if result.Best == nil || result.Best.ID != existing.ID {
		t.Fatalf("expected best candidate %s, got %+v", existing.ID, result.Best)
	}
	if result.Reason == "" {
		t.Fatalf("expected a match reason")
	}
}

func TestMatchNearDuplicateNeedsReview(t *testing.T) {
	matcher := newTestMatcher()

	existing := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(165.00),
	}
	index := NewIndex([]domain.CatalogItem{existing})

	item := domain.NormalizedItem{
		Name:     "Predator 212cc Hemi",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(169.99),
	}

	result := matcher.Match(item, index)
	if result.Classification != ClassNeedsReview {
		t.Fatalf("expected needs-review, got %s at %f", result.Classification, result.Confidence)
	}
	if result.Confidence < 0.60 || result.Confidence >= 0.90 {
		t.Fatalf("expected confidence in [0.60, 0.90), got %f", result.Confidence)
	}
	if result.Best == nil || result.Best.ID != existing.ID {
		t.Fatalf("expected candidate attached to review result")
	}
}

func TestMatchScoresOnlyWithinCategory(t *testing.T) {
	matcher := newTestMatcher()

	sameName := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "clutch",
	}
	index := NewIndex([]domain.CatalogItem{sameName})

	item := domain.NormalizedItem{
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
	}

	result := matcher.Match(item, index)
	if result.Classification != ClassNewItem {
		t.Fatalf("expected new-item across categories, got %s", result.Classification)
	}
}

func TestMatchTieBreakPrefersPopulatedPrice(t *testing.T) {
	matcher := newTestMatcher()

	withPrice := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Max Torque Clutch 10T",
		Category: "clutch",
		Price:    floatPtr(35.00),
	}
	withoutPrice := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Max Torque Clutch 10T",
		Category: "clutch",
	}
	index := NewIndex([]domain.CatalogItem{withoutPrice, withPrice})

	item := domain.NormalizedItem{Name: "Max Torque Clutch 10T", Category: "clutch"}

	result := matcher.Match(item, index)
	if result.Best == nil || result.Best.ID != withPrice.ID {
		t.Fatalf("expected tie-break to prefer priced candidate, got %+v", result.Best)
	}
}

func TestMatchTieBreakIsDeterministicByID(t *testing.T) {
	matcher := newTestMatcher()

	a := domain.CatalogItem{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "Azusa Sprocket 60T", Category: "sprocket"}
	b := domain.CatalogItem{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Name: "Azusa Sprocket 60T", Category: "sprocket"}

	item := domain.NormalizedItem{Name: "Azusa Sprocket 60T", Category: "sprocket"}

	for _, order := range [][]domain.CatalogItem{{a, b}, {b, a}} {
		result := matcher.Match(item, NewIndex(order))
		if result.Best == nil || result.Best.ID != a.ID {
			t.Fatalf("expected smaller id to win the tie regardless of order, got %+v", result.Best)
		}
	}
}

func TestMatchConfidenceTracksChosenCandidate(t *testing.T) {
	matcher := newTestMatcher()

	// The unpriced candidate scores a perfect 1.0 on name alone; the
	// priced one scores fractionally lower because its near-identical
	// price adds a slightly imperfect numeric term. The tie-break
	// prefers the priced candidate, and the confidence must be its own
	// score rather than the partition maximum.
	unpriced := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Comet 30 Series Driver",
		Category: "torque_converter",
	}
	priced := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Comet 30 Series Driver",
		Category: "torque_converter",
		Price:    floatPtr(99.00),
	}
	index := NewIndex([]domain.CatalogItem{unpriced, priced})

	item := domain.NormalizedItem{
		Name:     "Comet 30 Series Driver",
		Category: "torque_converter",
		Price:    floatPtr(100.00),
	}

	result := matcher.Match(item, index)
	if result.Best == nil || result.Best.ID != priced.ID {
		t.Fatalf("expected tie-break to choose the priced candidate, got %+v", result.Best)
	}
	if result.Confidence >= 1.0 || result.Confidence < 0.99 {
		t.Fatalf("expected the chosen candidate's own score just under 1.0, got %f", result.Confidence)
	}
	if result.Classification != ClassAutoMatch {
		t.Fatalf("expected auto-match, got %s", result.Classification)
	}
}

func TestThresholdBucketsPartitionRange(t *testing.T) {
	matcher := newTestMatcher()

	existing := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
	}
	index := NewIndex([]domain.CatalogItem{existing})

	cases := []struct {
		name string
		item domain.NormalizedItem
		want Classification
	}{
		{
			name: "identical",
			item: domain.NormalizedItem{Name: "Predator 212 Hemi Engine", Brand: "Predator", Category: "engine"},
			want: ClassAutoMatch,
		},
		{
			name: "unrelated",
			item: domain.NormalizedItem{Name: "Band Brake Assembly", Brand: "MCP", Category: "engine"},
			want: ClassNewItem,
		},
	}
	for _, tc := range cases {
		result := matcher.Match(tc.item, index)
		if result.Classification != tc.want {
			t.Fatalf("%s: expected %s, got %s at %f", tc.name, tc.want, result.Classification, result.Confidence)
		}
	}
}
