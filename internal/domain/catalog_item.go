package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType distinguishes the two catalog families.
type EntityType string

const (
	EntityEngine EntityType = "engine"
	EntityPart   EntityType = "part"
)

// CatalogItem is one canonical entry in the live catalog. Version supports
// the optimistic-concurrency check on publish: every write bumps it, and a
// stale writer fails instead of clobbering.
type CatalogItem struct {
	ID               uuid.UUID    `json:"id"`
	EntityType       EntityType   `json:"entity_type"`
	Name             string       `json:"name"`
	Brand            string       `json:"brand,omitempty"`
	Category         string       `json:"category"`
	Price            *float64     `json:"price,omitempty"`
	ImageURL         string       `json:"image_url,omitempty"`
	AffiliateURL     string       `json:"affiliate_url,omitempty"`
	Specifications   AttributeBag `json:"specifications"`
	SourceProposalID *uuid.UUID   `json:"source_proposal_id,omitempty"`
	Version          int64        `json:"version"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewCatalogItem builds a version-1 item from published proposal data.
// The provenance link back to the proposal is kept for audit.
func NewCatalogItem(entityType EntityType, data AttributeBag, proposalID uuid.UUID) CatalogItem {
	now := time.Now().UTC()
	item := CatalogItem{
		ID:         uuid.New(),
		EntityType: entityType,
		Name:       data.String("name"),
		Brand:      data.String("brand"),
		Category:   data.String("category"),
		ImageURL:   data.String("image_url"),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	pid := proposalID
	item.SourceProposalID = &pid
	if price, ok := data.Float("price"); ok {
		item.Price = &price
	}
	if specs, ok := data["specifications"].(map[string]any); ok {
		item.Specifications = Clone(specs)
	} else {
		item.Specifications = AttributeBag{}
	}
	return item
}

// ApplyProposal overlays proposal data onto an existing item, preserving
// identity and bumping nothing; the repository bumps version on write.
func (c CatalogItem) ApplyProposal(data AttributeBag) CatalogItem {
	if name := data.String("name"); name != "" {
		c.Name = name
	}
	if brand := data.String("brand"); brand != "" {
		c.Brand = brand
	}
	if category := data.String("category"); category != "" {
		c.Category = category
	}
	if image := data.String("image_url"); image != "" {
		c.ImageURL = image
	}
	if price, ok := data.Float("price"); ok {
		c.Price = &price
	}
	if specs, ok := data["specifications"].(map[string]any); ok {
		merged := Clone(c.Specifications)
		for k, v := range specs {
			merged[k] = v
		}
		c.Specifications = merged
	}
	c.UpdatedAt = time.Now().UTC()
	return c
}

// Spec returns a numeric specification value when present.
func (c CatalogItem) Spec(key string) (float64, bool) {
	if c.Specifications == nil {
		return 0, false
	}
	return c.Specifications.Float(key)
}
