package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kartlab/catalogd/internal/domain"
)

// ImportJobRepository defines the persistence operations for import jobs.
// Jobs are never deleted; they are retained as audit records.
type ImportJobRepository interface {
	Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error)
	List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ImportJob, error)
	SetTotalRows(ctx context.Context, id uuid.UUID, total int) error
	// TransitionStatus performs a conditional status update and reports
	// whether the row moved. Zero rows affected means the job was not in
	// the expected state, which keeps transitions monotonic under
	// concurrent callers.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.JobStatus) (bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, processedRows int) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
}

// RawRecordRepository stages and resolves per-row import records.
type RawRecordRepository interface {
	CreateBatch(ctx context.Context, records []domain.ImportRawRecord) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.ImportRawRecord, error)
	ListPending(ctx context.Context, jobID uuid.UUID) ([]domain.ImportRawRecord, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
}

// ProposalFilter narrows proposal listings for the review queue.
type ProposalFilter struct {
	Status   domain.ProposalStatus
	JobID    *uuid.UUID
	Category string
	Limit    int
	Offset   int
}

// ProposalRepository persists part proposals and their review state.
type ProposalRepository interface {
	Create(ctx context.Context, proposal domain.PartProposal) (domain.PartProposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.PartProposal, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.PartProposal, error)
	List(ctx context.Context, filter ProposalFilter) ([]domain.PartProposal, error)
	CountByJob(ctx context.Context, jobID uuid.UUID) (int, error)
	// Review conditionally moves a proposal from → to, stamping reviewer
	// attribution. Zero rows affected (false) means another reviewer won
	// the race; the state machine never silently overwrites.
	Review(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, reviewerID uuid.UUID, notes string) (bool, error)
	// MarkPublished stamps the terminal published state; only reachable
	// from approved.
	MarkPublished(ctx context.Context, id uuid.UUID) (bool, error)
}

// CatalogRepository is the read-many/write-rare port onto the canonical
// catalog. List feeds the matcher's per-job snapshot and the scanner.
type CatalogRepository interface {
	List(ctx context.Context) ([]domain.CatalogItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.CatalogItem, error)
	Create(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error)
	// UpdateVersioned writes only when the stored version still matches
	// expectedVersion; false reports a lost optimistic-concurrency race.
	UpdateVersioned(ctx context.Context, item domain.CatalogItem, expectedVersion int64) (domain.CatalogItem, bool, error)
}

// AuditLogRepository records catalog mutations for later inspection.
type AuditLogRepository interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}
