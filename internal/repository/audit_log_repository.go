package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartlab/catalogd/internal/domain"
)

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository wires a repository backed by pgxpool.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	oldJSON, err := entry.OldData.MarshalJSONB()
	if err != nil {
		return fmt.Errorf("failed to marshal old data: %w", err)
	}
	newJSON, err := entry.NewData.MarshalJSONB()
	if err != nil {
		return fmt.Errorf("failed to marshal new data: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO audit_log (id, actor_id, action, entity_id, proposal_id, old_data, new_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ActorID, entry.Action, entry.EntityID, entry.ProposalID, oldJSON, newJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
