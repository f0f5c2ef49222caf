package matching

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kartlab/catalogd/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestScoreIdenticalItemIsOne(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	item := domain.NormalizedItem{
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(165.00),
	}
	candidate := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(165.00),
	}

	if got := scorer.Score(item, candidate); got != 1.0 {
		t.Fatalf("expected identical item to score 1.0, got %f", got)
	}
}

func TestScoreIsBounded(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	items := []domain.NormalizedItem{
		{Name: "Predator 212cc Hemi", Brand: "Predator", Price: floatPtr(169.99)},
		{Name: "completely unrelated widget", Brand: "Acme"},
		{Name: ""},
	}
	candidates := []domain.CatalogItem{
		{ID: uuid.New(), Name: "Predator 212 Hemi Engine", Brand: "Predator", Price: floatPtr(165.00)},
		{ID: uuid.New(), Name: "Torque Converter 30 Series", Brand: "Comet"},
		{ID: uuid.New()},
	}

	for _, item := range items {
		for _, candidate := range candidates {
			got := scorer.Score(item, candidate)
			if got < 0 || got > 1 {
				t.Fatalf("score out of bounds for %q vs %q: %f", item.Name, candidate.Name, got)
			}
		}
	}
}

func TestScoreNearDuplicateFallsInReviewBand(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	item := domain.NormalizedItem{
		Name:     "Predator 212cc Hemi",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(169.99),
	}
	candidate := domain.CatalogItem{
		ID:       uuid.New(),
		Name:     "Predator 212 Hemi Engine",
		Brand:    "Predator",
		Category: "engine",
		Price:    floatPtr(165.00),
	}

	got := scorer.Score(item, candidate)
	if got < 0.60 || got >= 0.90 {
		t.Fatalf("expected near-duplicate score in [0.60, 0.90), got %f", got)
	}
}

func TestScoreBrandMismatchLowersScore(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	item := domain.NormalizedItem{Name: "212 Hemi Engine", Brand: "Predator"}
	same := domain.CatalogItem{ID: uuid.New(), Name: "212 Hemi Engine", Brand: "Predator"}
	other := domain.CatalogItem{ID: uuid.New(), Name: "212 Hemi Engine", Brand: "Tillotson"}

	if sameScore, otherScore := scorer.Score(item, same), scorer.Score(item, other); sameScore <= otherScore {
		t.Fatalf("expected brand match %f to beat mismatch %f", sameScore, otherScore)
	}
}

func TestScoreExcludesMissingTerms(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	// No brand and no numeric data on either side: only the name term
	// contributes, renormalized to full weight.
	item := domain.NormalizedItem{Name: "35 Chain Master Link"}
	candidate := domain.CatalogItem{ID: uuid.New(), Name: "35 Chain Master Link"}

	if got := scorer.Score(item, candidate); got != 1.0 {
		t.Fatalf("expected renormalized name-only score 1.0, got %f", got)
	}
}

func TestScoreNumericProximityDecay(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	base := domain.NormalizedItem{Name: "clutch", Price: floatPtr(100)}
	near := domain.CatalogItem{ID: uuid.New(), Name: "clutch", Price: floatPtr(105)}
	far := domain.CatalogItem{ID: uuid.New(), Name: "clutch", Price: floatPtr(300)}

	nearScore := scorer.Score(base, near)
	farScore := scorer.Score(base, far)
	if nearScore <= farScore {
		t.Fatalf("expected close price %f to beat distant price %f", nearScore, farScore)
	}
	// Past 50% relative difference the numeric term bottoms out at zero.
	if farScore != scorer.Score(base, domain.CatalogItem{ID: far.ID, Name: "clutch", Price: floatPtr(10000)}) {
		t.Fatalf("expected numeric term to saturate past the decay window")
	}
}

func TestTokenizeDropsStopWordsAndPunctuation(t *testing.T) {
	tokens := tokenize("Clutch for the Go-Kart, with 3/4\" Bore")
	for _, want := range []string{"clutch", "go", "kart", "3", "4", "bore"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("expected token %q in %v", want, tokens)
		}
	}
	for _, skip := range []string{"for", "the", "with"} {
		if _, ok := tokens[skip]; ok {
			t.Fatalf("expected stop word %q to be dropped", skip)
		}
	}
}
