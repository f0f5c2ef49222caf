package matching

import (
	"sort"

	"github.com/kartlab/catalogd/internal/domain"
)

// Index is an immutable, category-partitioned snapshot of the live
// catalog. One snapshot is taken per job run so every row in a job is
// matched against a consistent catalog view; readers never lock.
type Index struct {
	byCategory map[string][]domain.CatalogItem
	size       int
}

// NewIndex partitions a catalog snapshot by category. Category is the
// primary partitioning key: the matcher never scores across categories.
func NewIndex(items []domain.CatalogItem) *Index {
	idx := &Index{
		byCategory: make(map[string][]domain.CatalogItem),
		size:       len(items),
	}
	for _, item := range items {
		idx.byCategory[item.Category] = append(idx.byCategory[item.Category], item)
	}
	return idx
}

// Category returns the items in one category partition.
func (i *Index) Category(category string) []domain.CatalogItem {
	return i.byCategory[category]
}

// Categories returns the partition keys in stable order.
func (i *Index) Categories() []string {
	keys := make([]string, 0, len(i.byCategory))
	for k := range i.byCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the total number of indexed items.
func (i *Index) Len() int {
	return i.size
}
