package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartlab/catalogd/internal/domain"
)

type rawRecordRepository struct {
	pool *pgxpool.Pool
}

// NewRawRecordRepository wires a repository backed by pgxpool.
func NewRawRecordRepository(pool *pgxpool.Pool) RawRecordRepository {
	return &rawRecordRepository{pool: pool}
}

func (r *rawRecordRepository) CreateBatch(ctx context.Context, records []domain.ImportRawRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		rawJSON, err := record.RawData.MarshalJSONB()
		if err != nil {
			return fmt.Errorf("failed to marshal raw data for row %d: %w", record.RowNumber, err)
		}
		batch.Queue(
			`INSERT INTO import_raw_records (id, job_id, row_number, raw_data, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			record.ID, record.JobID, record.RowNumber, rawJSON, record.Status,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to stage raw records: %w", err)
		}
	}
	return nil
}

func (r *rawRecordRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.ImportRawRecord, error) {
	return r.list(ctx, jobID, "")
}

func (r *rawRecordRepository) ListPending(ctx context.Context, jobID uuid.UUID) ([]domain.ImportRawRecord, error) {
	return r.list(ctx, jobID, domain.RecordPending)
}

func (r *rawRecordRepository) list(ctx context.Context, jobID uuid.UUID, status domain.RecordStatus) ([]domain.ImportRawRecord, error) {
	query := `SELECT id, job_id, row_number, raw_data, status, error_message, created_at
	          FROM import_raw_records WHERE job_id = $1`
	args := []any{jobID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY row_number`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw records: %w", err)
	}
	defer rows.Close()

	records := []domain.ImportRawRecord{}
	for rows.Next() {
		var (
			record       domain.ImportRawRecord
			rawJSON      []byte
			errorMessage *string
		)
		if err := rows.Scan(
			&record.ID,
			&record.JobID,
			&record.RowNumber,
			&rawJSON,
			&record.Status,
			&errorMessage,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan raw record: %w", err)
		}
		record.RawData, err = domain.BagFromJSONB(rawJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode raw data: %w", err)
		}
		if errorMessage != nil {
			record.ErrorMessage = *errorMessage
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw records: %w", err)
	}
	return records, nil
}

func (r *rawRecordRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.resolve(ctx, id, domain.RecordProcessed, "")
}

func (r *rawRecordRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	return r.resolve(ctx, id, domain.RecordError, message)
}

// resolve moves a record out of pending exactly once; a record that
// already reached a terminal status is left untouched.
func (r *rawRecordRepository) resolve(ctx context.Context, id uuid.UUID, to domain.RecordStatus, message string) error {
	var errorMessage any
	if message != "" {
		errorMessage = message
	}
	_, err := r.pool.Exec(
		ctx,
		`UPDATE import_raw_records SET status = $2, error_message = $3
		 WHERE id = $1 AND status = $4`,
		id, to, errorMessage, domain.RecordPending,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve raw record: %w", err)
	}
	return nil
}
