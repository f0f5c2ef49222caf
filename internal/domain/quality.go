package domain

import "github.com/google/uuid"

// DuplicateCandidate surfaces a near-duplicate pair found in the live
// catalog. Ephemeral: recomputed on every scan, never persisted.
type DuplicateCandidate struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	EntityType      EntityType `json:"entity_type"`
	Brand           string     `json:"brand,omitempty"`
	Category        string     `json:"category"`
	DuplicateOfID   uuid.UUID  `json:"duplicate_of_id"`
	DuplicateOfName string     `json:"duplicate_of_name"`
	SimilarityScore float64    `json:"similarity_score"`
}

// IssueSeverity grades a quality finding.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityWarning  IssueSeverity = "warning"
	SeverityInfo     IssueSeverity = "info"
)

// QualityIssue is one failing rule for one catalog item.
type QualityIssue struct {
	Field    string        `json:"field"`
	Severity IssueSeverity `json:"severity"`
}

// DataQualityScore is a per-item completeness score, derived entirely from
// current catalog field values.
type DataQualityScore struct {
	EntityID     uuid.UUID      `json:"entity_id"`
	EntityType   EntityType     `json:"entity_type"`
	Name         string         `json:"name"`
	Category     string         `json:"category"`
	Score        int            `json:"score"`        // 0–100 weighted
	Completeness float64        `json:"completeness"` // fraction of expected fields populated
	Issues       []QualityIssue `json:"issues"`
}

// CategoryQualitySummary rolls item scores up by category.
type CategoryQualitySummary struct {
	Category     string  `json:"category"`
	Items        int     `json:"items"`
	AverageScore float64 `json:"average_score"`
}

// QualityReport is the aggregated quality-pass output.
type QualityReport struct {
	Items        []DataQualityScore       `json:"items"`
	Categories   []CategoryQualitySummary `json:"categories"`
	AverageScore float64                  `json:"average_score"`
	TotalItems   int                      `json:"total_items"`
}
