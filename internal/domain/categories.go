package domain

// SpecField describes one expected specification key for a category.
// Numeric fields feed the matcher's proximity term; required fields feed
// the quality rule set.
type SpecField struct {
	Key      string
	Numeric  bool
	Required bool
}

// CategorySpecs maps part/engine categories to their expected
// specification fields. Categories not listed here still ingest; they just
// contribute nothing to the numeric proximity term and carry no
// category-specific quality rules.
var CategorySpecs = map[string][]SpecField{
	"engine": {
		{Key: "displacement_cc", Numeric: true, Required: true},
		{Key: "horsepower", Numeric: true, Required: true},
		{Key: "shaft_diameter", Numeric: true},
		{Key: "max_rpm", Numeric: true},
	},
	"clutch": {
		{Key: "bore_diameter", Numeric: true, Required: true},
		{Key: "tooth_count", Numeric: true},
		{Key: "max_rpm", Numeric: true},
	},
	"torque_converter": {
		{Key: "bore_diameter", Numeric: true, Required: true},
		{Key: "max_rpm", Numeric: true},
	},
	"chain": {
		{Key: "length_in", Numeric: true},
		{Key: "link_count", Numeric: true},
		{Key: "width_in", Numeric: true},
	},
	"sprocket": {
		{Key: "tooth_count", Numeric: true, Required: true},
		{Key: "bore_diameter", Numeric: true},
	},
	"axle": {
		{Key: "length_in", Numeric: true, Required: true},
		{Key: "diameter_in", Numeric: true},
	},
	"wheel": {
		{Key: "diameter_in", Numeric: true},
		{Key: "width_in", Numeric: true},
	},
	"pedals": {
		{Key: "pedal_length_in", Numeric: true},
		{Key: "throttle_cable_length_in", Numeric: true},
	},
}

// NumericSpecKeys returns the comparable numeric fields for a category.
func NumericSpecKeys(category string) []string {
	var keys []string
	for _, f := range CategorySpecs[category] {
		if f.Numeric {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// RequiredSpecKeys returns the specification fields a complete entry in
// this category is expected to populate.
func RequiredSpecKeys(category string) []string {
	var keys []string
	for _, f := range CategorySpecs[category] {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
