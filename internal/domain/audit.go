package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies what a publish did to the catalog.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
)

// AuditEntry records one catalog mutation for after-the-fact inspection.
// Written only by the review workflow's publish path.
type AuditEntry struct {
	ID         uuid.UUID    `json:"id"`
	ActorID    uuid.UUID    `json:"actor_id"`
	Action     AuditAction  `json:"action"`
	EntityID   uuid.UUID    `json:"entity_id"`
	ProposalID uuid.UUID    `json:"proposal_id"`
	OldData    AttributeBag `json:"old_data,omitempty"`
	NewData    AttributeBag `json:"new_data"`
	CreatedAt  time.Time    `json:"created_at"`
}
