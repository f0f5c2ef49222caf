package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// AttributeBag is an open-ended key/value map, stored as JSONB. Raw source
// rows and proposed catalog data both travel in this shape.
type AttributeBag map[string]any

// Clone returns a shallow copy so callers can mutate without aliasing.
func Clone(bag AttributeBag) AttributeBag {
	out := make(AttributeBag, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	return out
}

// String returns the trimmed string form of a key, or "" when absent.
func (b AttributeBag) String(key string) string {
	v, ok := b[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// Float returns the numeric value of a key when it can be interpreted as
// one. Strings are parsed after stripping a leading currency symbol and
// thousands separators, so "$169.99" and "1,200" both resolve.
func (b AttributeBag) Float(key string) (float64, bool) {
	v, ok := b[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return parseNumeric(n)
	default:
		return 0, false
	}
}

// parseNumeric extracts a float from a human-entered value like "$169.99",
// "212 cc" or "6.5hp". The first numeric run wins; trailing units are
// ignored.
func parseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")

	start := -1
	end := len(s)
	for i, r := range s {
		if r >= '0' && r <= '9' || r == '.' || (r == '-' && i == start+1) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			end = i
			break
		}
	}
	if start == -1 {
		return 0, false
	}

	f, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MarshalJSONB serializes the bag for a JSONB column. A nil bag serializes
// as an empty object rather than SQL null.
func (b AttributeBag) MarshalJSONB() ([]byte, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b)
}

// BagFromJSONB decodes a JSONB column back into a bag.
func BagFromJSONB(data []byte) (AttributeBag, error) {
	if len(data) == 0 {
		return AttributeBag{}, nil
	}
	var bag AttributeBag
	if err := json.Unmarshal(data, &bag); err != nil {
		return nil, err
	}
	return bag, nil
}
