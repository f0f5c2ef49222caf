package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartlab/catalogd/internal/domain"
)

type proposalRepository struct {
	db querier
}

// NewProposalRepository wires a repository backed by pgxpool.
func NewProposalRepository(pool *pgxpool.Pool) ProposalRepository {
	return &proposalRepository{db: pool}
}

const proposalColumns = `id, job_id, raw_record_id, proposed_data, proposed_part_id, match_confidence,
	match_reason, status, reviewed_by, reviewed_at, review_notes, published_at, created_at`

func (r *proposalRepository) Create(ctx context.Context, proposal domain.PartProposal) (domain.PartProposal, error) {
	dataJSON, err := proposal.ProposedData.MarshalJSONB()
	if err != nil {
		return domain.PartProposal{}, fmt.Errorf("failed to marshal proposed data: %w", err)
	}

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO part_proposals
		   (id, job_id, raw_record_id, proposed_data, proposed_part_id, match_confidence, match_reason, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+proposalColumns,
		proposal.ID, proposal.JobID, proposal.RawRecordID, dataJSON,
		proposal.ProposedPartID, proposal.MatchConfidence, nullable(proposal.MatchReason), proposal.Status,
	)
	created, err := scanProposal(row)
	if err != nil {
		return domain.PartProposal{}, fmt.Errorf("failed to create proposal: %w", err)
	}
	return created, nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PartProposal, error) {
	row := r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM part_proposals WHERE id = $1`, id)
	proposal, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PartProposal{}, domain.ErrNotFound
		}
		return domain.PartProposal{}, fmt.Errorf("failed to get proposal: %w", err)
	}
	return proposal, nil
}

func (r *proposalRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.PartProposal, error) {
	return r.List(ctx, ProposalFilter{JobID: &jobID})
}

func (r *proposalRepository) List(ctx context.Context, filter ProposalFilter) ([]domain.PartProposal, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + proposalColumns + ` FROM part_proposals WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}
	if filter.JobID != nil {
		query += ` AND job_id = ` + arg(*filter.JobID)
	}
	if filter.Category != "" {
		query += ` AND proposed_data->>'category' = ` + arg(filter.Category)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	proposals := []domain.PartProposal{}
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate proposals: %w", err)
	}
	return proposals, nil
}

func (r *proposalRepository) CountByJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM part_proposals WHERE job_id = $1`, jobID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count proposals: %w", err)
	}
	return count, nil
}

func (r *proposalRepository) Review(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, reviewerID uuid.UUID, notes string) (bool, error) {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE part_proposals
		 SET status = $3, reviewed_by = $4, reviewed_at = now(), review_notes = $5
		 WHERE id = $1 AND status = $2`,
		id, from, to, reviewerID, nullable(notes),
	)
	if err != nil {
		return false, fmt.Errorf("failed to review proposal: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *proposalRepository) MarkPublished(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE part_proposals SET status = $2, published_at = now()
		 WHERE id = $1 AND status = $3`,
		id, domain.ProposalPublished, domain.ProposalApproved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark proposal published: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanProposal(row pgx.Row) (domain.PartProposal, error) {
	var (
		proposal    domain.PartProposal
		dataJSON    []byte
		matchReason *string
		reviewNotes *string
		reviewedAt  pgtype.Timestamptz
		publishedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&proposal.ID,
		&proposal.JobID,
		&proposal.RawRecordID,
		&dataJSON,
		&proposal.ProposedPartID,
		&proposal.MatchConfidence,
		&matchReason,
		&proposal.Status,
		&proposal.ReviewedBy,
		&reviewedAt,
		&reviewNotes,
		&publishedAt,
		&proposal.CreatedAt,
	); err != nil {
		return domain.PartProposal{}, err
	}

	var err error
	proposal.ProposedData, err = domain.BagFromJSONB(dataJSON)
	if err != nil {
		return domain.PartProposal{}, fmt.Errorf("failed to decode proposed data: %w", err)
	}
	if matchReason != nil {
		proposal.MatchReason = *matchReason
	}
	if reviewNotes != nil {
		proposal.ReviewNotes = *reviewNotes
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		proposal.ReviewedAt = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		proposal.PublishedAt = &t
	}
	return proposal, nil
}
