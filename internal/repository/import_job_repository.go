package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartlab/catalogd/internal/domain"
)

type importJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository wires a repository backed by pgxpool.
func NewImportJobRepository(pool *pgxpool.Pool) ImportJobRepository {
	return &importJobRepository{pool: pool}
}

const jobColumns = `id, name, source_type, status, total_rows, processed_rows, error_message, created_by, created_at, updated_at`

func (r *importJobRepository) Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO import_jobs (id, name, source_type, status, total_rows, processed_rows, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+jobColumns,
		job.ID, job.Name, job.SourceType, job.Status, job.TotalRows, job.ProcessedRows, job.CreatedBy,
	)
	created, err := scanJob(row)
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to create import job: %w", err)
	}
	return created, nil
}

func (r *importJobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ImportJob{}, domain.ErrNotFound
		}
		return domain.ImportJob{}, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (r *importJobRepository) List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ImportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + jobColumns + ` FROM import_jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.ImportJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import jobs: %w", err)
	}
	return jobs, nil
}

func (r *importJobRepository) SetTotalRows(ctx context.Context, id uuid.UUID, total int) error {
	_, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET total_rows = $2, updated_at = now() WHERE id = $1`,
		id, total,
	)
	if err != nil {
		return fmt.Errorf("failed to set total rows: %w", err)
	}
	return nil
}

func (r *importJobRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.JobStatus) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, domain.ErrInvalidTransition
	}
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition job status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *importJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, processedRows int) error {
	// Guarded against regressions and against exceeding total_rows so the
	// processed_rows <= total_rows invariant holds at every observed point.
	_, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs
		 SET processed_rows = LEAST($2, total_rows), updated_at = now()
		 WHERE id = $1 AND processed_rows < $2`,
		id, processedRows,
	)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (r *importJobRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET status = $2, error_message = $3, updated_at = now()
		 WHERE id = $1 AND status = $4`,
		id, domain.JobFailed, message, domain.JobProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (domain.ImportJob, error) {
	var (
		job          domain.ImportJob
		errorMessage *string
	)
	if err := row.Scan(
		&job.ID,
		&job.Name,
		&job.SourceType,
		&job.Status,
		&job.TotalRows,
		&job.ProcessedRows,
		&errorMessage,
		&job.CreatedBy,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return domain.ImportJob{}, err
	}
	if errorMessage != nil {
		job.ErrorMessage = *errorMessage
	}
	return job, nil
}
