package domain

// NormalizedItem is the canonical shape a raw row takes after cleanup:
// typed required fields, a typed numeric-spec subset the matcher can
// compare, and an open extension bag for everything else.
type NormalizedItem struct {
	Name     string
	Brand    string
	Category string
	Price    *float64
	ImageURL string
	// Specs holds the comparable numeric specification fields for the
	// item's category (displacement_cc, horsepower, bore_diameter, ...).
	Specs map[string]float64
	// Extra carries source attributes that did not map onto the canonical
	// schema. Preserved verbatim into proposed_data.
	Extra AttributeBag
}

// ToProposedData flattens the normalized item back into the attribute bag
// persisted on a proposal.
func (n NormalizedItem) ToProposedData() AttributeBag {
	data := Clone(n.Extra)
	data["name"] = n.Name
	if n.Brand != "" {
		data["brand"] = n.Brand
	}
	if n.Category != "" {
		data["category"] = n.Category
	}
	if n.Price != nil {
		data["price"] = *n.Price
	}
	if n.ImageURL != "" {
		data["image_url"] = n.ImageURL
	}
	specs := make(map[string]any)
	if nested, ok := data["specifications"].(map[string]any); ok {
		for k, v := range nested {
			specs[k] = v
		}
	}
	for k, v := range n.Specs {
		specs[k] = v
	}
	if len(specs) > 0 {
		data["specifications"] = specs
	}
	return data
}
