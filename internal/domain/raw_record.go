package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecordStatus is the per-row lifecycle inside a job. A record leaves
// pending exactly once; processed and error are immutable.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordProcessed RecordStatus = "processed"
	RecordError     RecordStatus = "error"
)

// ImportRawRecord stages one source row under a job, exactly as supplied.
// Row numbers are unique within a job and preserve source order, though
// processing order is not guaranteed.
type ImportRawRecord struct {
	ID           uuid.UUID    `json:"id"`
	JobID        uuid.UUID    `json:"job_id"`
	RowNumber    int          `json:"row_number"`
	RawData      AttributeBag `json:"raw_data"`
	Status       RecordStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewRawRecord stages a source row under a job.
func NewRawRecord(jobID uuid.UUID, rowNumber int, raw AttributeBag) ImportRawRecord {
	return ImportRawRecord{
		ID:        uuid.New(),
		JobID:     jobID,
		RowNumber: rowNumber,
		RawData:   Clone(raw),
		Status:    RecordPending,
		CreatedAt: time.Now().UTC(),
	}
}
