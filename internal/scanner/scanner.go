package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/matching"
	"github.com/kartlab/catalogd/internal/repository"
)

// Scanner runs the periodic read-only catalog passes: pairwise duplicate
// detection and per-item quality scoring. It holds its own concurrency cap
// so a large scan cannot starve import workers.
type Scanner struct {
	catalog     repository.CatalogRepository
	scorer      *matching.Scorer
	threshold   float64
	concurrency int
	logger      zerolog.Logger
}

// NewScanner creates a scanner surfacing pairs at or above threshold.
func NewScanner(catalog repository.CatalogRepository, scorer *matching.Scorer, threshold float64, concurrency int, logger zerolog.Logger) *Scanner {
	if threshold <= 0 {
		threshold = 0.85
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Scanner{
		catalog:     catalog,
		scorer:      scorer,
		threshold:   threshold,
		concurrency: concurrency,
		logger:      logger,
	}
}

// FindDuplicates compares every catalog item against its same-category
// peers and reports pairs at or above the surfacing threshold, sorted
// descending by score. Read-only; safe to run concurrently with imports.
func (s *Scanner) FindDuplicates(ctx context.Context) ([]domain.DuplicateCandidate, error) {
	items, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	index := matching.NewIndex(items)

	var mu sync.Mutex
	var candidates []domain.DuplicateCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, category := range index.Categories() {
		partition := index.Category(category)
		if len(partition) < 2 {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			found := s.scanPartition(partition)
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			candidates = append(candidates, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SimilarityScore != candidates[j].SimilarityScore {
			return candidates[i].SimilarityScore > candidates[j].SimilarityScore
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	s.logger.Info().
		Int("items", len(items)).
		Int("candidates", len(candidates)).
		Msg("duplicate scan finished")

	return candidates, nil
}

func (s *Scanner) scanPartition(partition []domain.CatalogItem) []domain.DuplicateCandidate {
	var found []domain.DuplicateCandidate
	for i := 0; i < len(partition); i++ {
		for j := i + 1; j < len(partition); j++ {
			a, b := partition[i], partition[j]
			score := s.scorer.Score(asNormalized(a), b)
			if score < s.threshold {
				continue
			}
			found = append(found, domain.DuplicateCandidate{
				ID:              a.ID,
				Name:            a.Name,
				EntityType:      a.EntityType,
				Brand:           a.Brand,
				Category:        a.Category,
				DuplicateOfID:   b.ID,
				DuplicateOfName: b.Name,
				SimilarityScore: score,
			})
		}
	}
	return found
}

// asNormalized projects a catalog item into the scorer's candidate shape
// so live items can be compared pairwise.
func asNormalized(item domain.CatalogItem) domain.NormalizedItem {
	n := domain.NormalizedItem{
		Name:     item.Name,
		Brand:    item.Brand,
		Category: item.Category,
		Price:    item.Price,
		Specs:    map[string]float64{},
	}
	for _, key := range domain.NumericSpecKeys(item.Category) {
		if v, ok := item.Spec(key); ok {
			n.Specs[key] = v
		}
	}
	return n
}

// qualityRule is one completeness check with its weight and severity.
type qualityRule struct {
	field    string
	severity domain.IssueSeverity
	weight   int
	passes   func(domain.CatalogItem) bool
}

// baseRules apply to every catalog entry regardless of category.
var baseRules = []qualityRule{
	{field: "price", severity: domain.SeverityCritical, weight: 25, passes: func(c domain.CatalogItem) bool {
		return c.Price != nil && *c.Price > 0
	}},
	{field: "brand", severity: domain.SeverityWarning, weight: 15, passes: func(c domain.CatalogItem) bool {
		return c.Brand != ""
	}},
	{field: "image_url", severity: domain.SeverityWarning, weight: 15, passes: func(c domain.CatalogItem) bool {
		return c.ImageURL != ""
	}},
	{field: "affiliate_url", severity: domain.SeverityInfo, weight: 10, passes: func(c domain.CatalogItem) bool {
		return c.AffiliateURL != ""
	}},
}

// specRuleWeight is the share of the score reserved for category-specific
// required specification fields, split evenly among them.
const specRuleWeight = 35

// QualityReport evaluates the rule set over the whole catalog and rolls
// scores up by category. Pure function of current catalog state.
func (s *Scanner) QualityReport(ctx context.Context) (domain.QualityReport, error) {
	items, err := s.catalog.List(ctx)
	if err != nil {
		return domain.QualityReport{}, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	report := domain.QualityReport{TotalItems: len(items)}
	byCategory := map[string][]float64{}
	totalScore := 0.0

	for _, item := range items {
		score := ScoreItem(item)
		report.Items = append(report.Items, score)
		byCategory[item.Category] = append(byCategory[item.Category], float64(score.Score))
		totalScore += float64(score.Score)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		scores := byCategory[category]
		sum := 0.0
		for _, v := range scores {
			sum += v
		}
		report.Categories = append(report.Categories, domain.CategoryQualitySummary{
			Category:     category,
			Items:        len(scores),
			AverageScore: sum / float64(len(scores)),
		})
	}
	if len(items) > 0 {
		report.AverageScore = totalScore / float64(len(items))
	}

	return report, nil
}

// ScoreItem evaluates the weighted rule set for one item: base rules plus
// the category's required specification fields.
func ScoreItem(item domain.CatalogItem) domain.DataQualityScore {
	result := domain.DataQualityScore{
		EntityID:   item.ID,
		EntityType: item.EntityType,
		Name:       item.Name,
		Category:   item.Category,
		Issues:     []domain.QualityIssue{},
	}

	earned := 0
	total := 0
	expected := 0
	populated := 0

	for _, rule := range baseRules {
		total += rule.weight
		expected++
		if rule.passes(item) {
			earned += rule.weight
			populated++
			continue
		}
		result.Issues = append(result.Issues, domain.QualityIssue{Field: rule.field, Severity: rule.severity})
	}

	required := domain.RequiredSpecKeys(item.Category)
	if len(required) > 0 {
		perField := specRuleWeight / len(required)
		for _, key := range required {
			total += perField
			expected++
			if _, ok := item.Spec(key); ok {
				earned += perField
				populated++
				continue
			}
			result.Issues = append(result.Issues, domain.QualityIssue{Field: key, Severity: domain.SeverityCritical})
		}
	}

	result.Score = earned * 100 / total
	result.Completeness = float64(populated) / float64(expected)
	return result
}
