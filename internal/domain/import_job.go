package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where an import's rows came from.
type SourceType string

const (
	SourceSpreadsheet     SourceType = "spreadsheet"
	SourceMarketplaceLink SourceType = "marketplace-link"
)

// ValidSourceType reports whether s is a known source type.
func ValidSourceType(s SourceType) bool {
	return s == SourceSpreadsheet || s == SourceMarketplaceLink
}

// JobStatus is the lifecycle state of an ImportJob.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// jobTransitions lists the permitted edges of the job state machine.
// Status never reverts out of a terminal state.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing, JobCancelled},
	JobProcessing: {JobCompleted, JobFailed, JobCancelled},
}

// CanTransition reports whether from → to is a legal job transition.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ImportJob is one ingestion run. Jobs are retained forever as audit
// records; a re-run of the same source is a new job.
type ImportJob struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	SourceType    SourceType `json:"source_type"`
	Status        JobStatus  `json:"status"`
	TotalRows     int        `json:"total_rows"`
	ProcessedRows int        `json:"processed_rows"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewImportJob creates a pending job for a submitted source.
func NewImportJob(name string, sourceType SourceType, createdBy uuid.UUID) ImportJob {
	now := time.Now().UTC()
	return ImportJob{
		ID:         uuid.New(),
		Name:       name,
		SourceType: sourceType,
		Status:     JobPending,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
