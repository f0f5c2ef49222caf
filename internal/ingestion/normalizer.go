package ingestion

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/kartlab/catalogd/internal/domain"
)

// fieldAliases lists, per source type, the raw column names that can feed
// each canonical field, in priority order. The canonical column always
// outranks listing-style aliases, so a row carrying both resolves the
// same way on every run. Spreadsheet columns are admin-curated;
// marketplace lookups arrive with listing-style names.
var fieldAliases = map[domain.SourceType]map[string][]string{
	domain.SourceSpreadsheet: {
		"name":      {"name"},
		"brand":     {"brand"},
		"category":  {"category"},
		"price":     {"price"},
		"image_url": {"image_url", "image"},
	},
	domain.SourceMarketplaceLink: {
		"name":      {"name", "title"},
		"brand":     {"brand", "manufacturer"},
		"category":  {"category", "product_category"},
		"price":     {"price", "list_price"},
		"image_url": {"image_url", "image"},
	},
}

var brandCaser = cases.Title(language.English)

// Normalize turns one raw source row into the canonical attribute shape.
// Pure function of its input. Fails only when a name cannot be derived;
// the caller records that as a row-level error and continues the batch.
func Normalize(raw domain.AttributeBag, sourceType domain.SourceType) (domain.NormalizedItem, error) {
	aliases := fieldAliases[sourceType]
	if aliases == nil {
		aliases = fieldAliases[domain.SourceSpreadsheet]
	}

	item := domain.NormalizedItem{
		Specs: map[string]float64{},
		Extra: domain.AttributeBag{},
	}

	consumed := map[string]bool{}
	for _, rawKey := range aliasKeys(aliases, "name", raw) {
		if name := cleanText(raw.String(rawKey)); name != "" {
			item.Name = name
			consumed[rawKey] = true
			break
		}
	}
	for _, rawKey := range aliasKeys(aliases, "brand", raw) {
		if brand := cleanText(raw.String(rawKey)); brand != "" {
			item.Brand = brandCaser.String(strings.ToLower(brand))
			consumed[rawKey] = true
			break
		}
	}
	for _, rawKey := range aliasKeys(aliases, "category", raw) {
		if category := canonicalCategory(raw.String(rawKey)); category != "" {
			item.Category = category
			consumed[rawKey] = true
			break
		}
	}
	for _, rawKey := range aliasKeys(aliases, "price", raw) {
		if price, ok := raw.Float(rawKey); ok && price > 0 {
			p := price
			item.Price = &p
			consumed[rawKey] = true
			break
		}
	}
	for _, rawKey := range aliasKeys(aliases, "image_url", raw) {
		if url := cleanText(raw.String(rawKey)); url != "" {
			item.ImageURL = url
			consumed[rawKey] = true
			break
		}
	}

	if item.Name == "" {
		return domain.NormalizedItem{}, domain.MissingRequiredField("name")
	}

	collectSpecs(&item, raw, consumed)

	for key, value := range raw {
		if consumed[key] {
			continue
		}
		if s, ok := value.(string); ok {
			item.Extra[key] = cleanText(s)
			continue
		}
		item.Extra[key] = value
	}

	return item, nil
}

// aliasKeys returns the raw keys present in the row for one canonical
// field, in priority order. Losing aliases are left for the Extra bag.
func aliasKeys(aliases map[string][]string, canonical string, raw domain.AttributeBag) []string {
	var present []string
	for _, key := range aliases[canonical] {
		if _, ok := raw[key]; ok {
			present = append(present, key)
		}
	}
	return present
}

// collectSpecs pulls the category's comparable numeric fields from either
// a nested specifications map or top-level columns, stripping units along
// the way via AttributeBag.Float.
func collectSpecs(item *domain.NormalizedItem, raw domain.AttributeBag, consumed map[string]bool) {
	var nested domain.AttributeBag
	if m, ok := raw["specifications"].(map[string]any); ok {
		nested = m
		consumed["specifications"] = true
	}

	for _, key := range domain.NumericSpecKeys(item.Category) {
		if nested != nil {
			if v, ok := nested.Float(key); ok {
				item.Specs[key] = v
				continue
			}
		}
		if v, ok := raw.Float(key); ok {
			item.Specs[key] = v
			consumed[key] = true
		}
	}

	// Non-numeric nested spec values survive into Extra so publish does
	// not silently drop them.
	if nested != nil {
		extraSpecs := domain.AttributeBag{}
		for k, v := range nested {
			if _, kept := item.Specs[k]; kept {
				extraSpecs[k] = item.Specs[k]
				continue
			}
			extraSpecs[k] = v
		}
		if len(extraSpecs) > 0 {
			item.Extra["specifications"] = map[string]any(extraSpecs)
		}
	}
}

// cleanText canonicalizes Unicode form and whitespace.
func cleanText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// canonicalCategory lowercases and snake_cases a category label so
// "Torque Converter" and "torque_converter" partition together.
func canonicalCategory(s string) string {
	s = strings.ToLower(cleanText(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
