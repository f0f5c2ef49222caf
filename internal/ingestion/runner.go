package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/matching"
	"github.com/kartlab/catalogd/internal/repository"
)

// Runner owns the import ETL state machine: it stages raw rows, drives
// normalization and matching across a bounded worker pool, and funnels all
// proposal writes and progress updates through a single aggregator so
// counters never lose updates.
type Runner struct {
	jobs      repository.ImportJobRepository
	records   repository.RawRecordRepository
	proposals repository.ProposalRepository
	catalog   repository.CatalogRepository
	matcher   *matching.Matcher
	workers   int
	logger    zerolog.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewRunner wires a runner over its persistence ports.
func NewRunner(
	jobs repository.ImportJobRepository,
	records repository.RawRecordRepository,
	proposals repository.ProposalRepository,
	catalog repository.CatalogRepository,
	matcher *matching.Matcher,
	workers int,
	logger zerolog.Logger,
) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		jobs:      jobs,
		records:   records,
		proposals: proposals,
		catalog:   catalog,
		matcher:   matcher,
		workers:   workers,
		logger:    logger,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// CreateJob persists a pending job and stages its raw rows in one batch,
// establishing total_rows up front so progress is always computable.
func (r *Runner) CreateJob(ctx context.Context, name string, sourceType domain.SourceType, createdBy uuid.UUID, rows []domain.AttributeBag) (domain.ImportJob, error) {
	if !domain.ValidSourceType(sourceType) {
		return domain.ImportJob{}, fmt.Errorf("unknown source type %q", sourceType)
	}

	job, err := r.jobs.Create(ctx, domain.NewImportJob(name, sourceType, createdBy))
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to create import job: %w", err)
	}

	staged := make([]domain.ImportRawRecord, len(rows))
	for i, row := range rows {
		staged[i] = domain.NewRawRecord(job.ID, i+1, row)
	}
	if len(staged) > 0 {
		if err := r.records.CreateBatch(ctx, staged); err != nil {
			return domain.ImportJob{}, fmt.Errorf("failed to stage raw records: %w", err)
		}
	}
	if err := r.jobs.SetTotalRows(ctx, job.ID, len(staged)); err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to set total rows: %w", err)
	}
	job.TotalRows = len(staged)

	r.logger.Info().
		Str("job_id", job.ID.String()).
		Str("source_type", string(sourceType)).
		Int("rows", len(staged)).
		Msg("import job created")

	return job, nil
}

// rowResult is one worker's verdict on one raw record, handed to the
// aggregator for serialized persistence.
type rowResult struct {
	record   domain.ImportRawRecord
	proposal *domain.PartProposal
	rowErr   *domain.NormalizationError
}

// GenerateProposals runs the pending → processing → terminal cycle for a
// job. Re-invoking on a completed job returns ErrAlreadyProcessed rather
// than silently duplicating proposals; a re-run is a new job.
func (r *Runner) GenerateProposals(ctx context.Context, jobID uuid.UUID) (int, error) {
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status == domain.JobCompleted {
		return 0, domain.ErrAlreadyProcessed
	}

	moved, err := r.jobs.TransitionStatus(ctx, jobID, domain.JobPending, domain.JobProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to start processing: %w", err)
	}
	if !moved {
		// Someone else got there first; report what the job became.
		current, getErr := r.jobs.GetByID(ctx, jobID)
		if getErr == nil && current.Status == domain.JobCompleted {
			return 0, domain.ErrAlreadyProcessed
		}
		return 0, domain.ErrInvalidTransition
	}

	// Snapshot the catalog once per job so every row is matched against a
	// consistent view. A failed snapshot is an infrastructure failure, not
	// a row-level one.
	items, err := r.catalog.List(ctx)
	if err != nil {
		_ = r.jobs.Fail(ctx, jobID, "catalog snapshot failed: "+err.Error())
		return 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	index := matching.NewIndex(items)

	pending, err := r.records.ListPending(ctx, jobID)
	if err != nil {
		_ = r.jobs.Fail(ctx, jobID, "failed to load pending records: "+err.Error())
		return 0, fmt.Errorf("failed to load pending records: %w", err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.registerCancel(jobID, cancel)
	defer r.unregisterCancel(jobID)

	sourceType := job.SourceType
	results := make(chan rowResult)

	var pool errgroup.Group
	pool.SetLimit(r.workers)
	go func() {
		for _, record := range pending {
			// Cancellation stops dispatch; rows already handed to the
			// pool run to completion so nothing is half-written.
			if jobCtx.Err() != nil {
				break
			}
			record := record
			pool.Go(func() error {
				results <- r.processRow(record, sourceType, index)
				return nil
			})
		}
		_ = pool.Wait()
		close(results)
	}()

	generated := 0
	processed := job.ProcessedRows
	var infraErr error

	for result := range results {
		if infraErr != nil {
			continue // drain; the pool must finish before we return
		}
		if err := r.persistResult(ctx, result); err != nil {
			infraErr = err
			cancel()
			continue
		}
		if result.proposal != nil {
			generated++
		}
		processed++
		if err := r.jobs.UpdateProgress(ctx, jobID, processed); err != nil {
			infraErr = fmt.Errorf("failed to update progress: %w", err)
			cancel()
		}
	}

	if infraErr != nil {
		_ = r.jobs.Fail(ctx, jobID, infraErr.Error())
		return generated, infraErr
	}

	terminal := domain.JobCompleted
	if jobCtx.Err() != nil {
		terminal = domain.JobCancelled
	}
	if _, err := r.jobs.TransitionStatus(context.WithoutCancel(ctx), jobID, domain.JobProcessing, terminal); err != nil {
		return generated, fmt.Errorf("failed to finish job: %w", err)
	}

	r.logger.Info().
		Str("job_id", jobID.String()).
		Str("status", string(terminal)).
		Int("generated", generated).
		Int("processed", processed).
		Msg("proposal generation finished")

	return generated, nil
}

// processRow is the CPU-bound half of a row's life: pure normalization and
// matching, no I/O.
func (r *Runner) processRow(record domain.ImportRawRecord, sourceType domain.SourceType, index *matching.Index) rowResult {
	item, err := Normalize(record.RawData, sourceType)
	if err != nil {
		var normErr *domain.NormalizationError
		if errors.As(err, &normErr) {
			return rowResult{record: record, rowErr: normErr}
		}
		return rowResult{record: record, rowErr: &domain.NormalizationError{Reason: err.Error()}}
	}

	match := r.matcher.Match(item, index)
	proposal := domain.NewPartProposal(record.JobID, record.ID, item.ToProposedData())
	if match.Classification != matching.ClassNewItem && match.Best != nil {
		proposal = proposal.WithMatch(match.Best.ID, match.Confidence, match.Reason)
	}
	return rowResult{record: record, proposal: &proposal}
}

// persistResult is the single serialized write path for row outcomes.
func (r *Runner) persistResult(ctx context.Context, result rowResult) error {
	if result.rowErr != nil {
		if err := r.records.MarkError(ctx, result.record.ID, result.rowErr.Error()); err != nil {
			return fmt.Errorf("failed to mark record error: %w", err)
		}
		r.logger.Debug().
			Str("job_id", result.record.JobID.String()).
			Int("row", result.record.RowNumber).
			Str("reason", result.rowErr.Error()).
			Msg("row rejected")
		return nil
	}

	if _, err := r.proposals.Create(ctx, *result.proposal); err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	if err := r.records.MarkProcessed(ctx, result.record.ID); err != nil {
		return fmt.Errorf("failed to mark record processed: %w", err)
	}
	return nil
}

// Cancel stops an in-flight job's dispatch, letting in-flight rows drain.
// A job that has not started processing moves straight to cancelled.
func (r *Runner) Cancel(ctx context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	cancel, running := r.cancels[jobID]
	r.mu.Unlock()

	if running {
		cancel()
		return nil
	}

	moved, err := r.jobs.TransitionStatus(ctx, jobID, domain.JobPending, domain.JobCancelled)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *Runner) registerCancel(jobID uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()
}

func (r *Runner) unregisterCancel(jobID uuid.UUID) {
	r.mu.Lock()
	delete(r.cancels, jobID)
	r.mu.Unlock()
}
