package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/repository"
)

// Service is the approval state machine for part proposals. It is the only
// component that writes proposal review state, and its Publish method is
// the single point where proposal data crosses into the canonical catalog.
type Service struct {
	proposals repository.ProposalRepository
	audit     repository.AuditLogRepository
	tx        repository.TxManager
	logger    zerolog.Logger
}

// NewService wires the review workflow over its persistence ports. All
// catalog writes go through the transaction manager.
func NewService(
	proposals repository.ProposalRepository,
	audit repository.AuditLogRepository,
	tx repository.TxManager,
	logger zerolog.Logger,
) *Service {
	return &Service{proposals: proposals, audit: audit, tx: tx, logger: logger}
}

// Approve moves a proposal from proposed to approved, stamping reviewer
// attribution. Concurrent reviewers race on a conditional update: exactly
// one wins, the loser gets ErrInvalidTransition.
func (s *Service) Approve(ctx context.Context, proposalID, reviewerID uuid.UUID, notes string) (domain.PartProposal, error) {
	return s.review(ctx, proposalID, reviewerID, notes, domain.ProposalProposed, domain.ProposalApproved)
}

// Reject moves a proposal to rejected, from either proposed or approved
// (reviewer reversal before publish). The reason is always retained for
// audit.
func (s *Service) Reject(ctx context.Context, proposalID, reviewerID uuid.UUID, reason string) (domain.PartProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return domain.PartProposal{}, err
	}
	if !domain.CanReview(proposal.Status, domain.ProposalRejected) {
		return domain.PartProposal{}, domain.ErrInvalidTransition
	}
	return s.review(ctx, proposalID, reviewerID, reason, proposal.Status, domain.ProposalRejected)
}

func (s *Service) review(ctx context.Context, proposalID, reviewerID uuid.UUID, notes string, from, to domain.ProposalStatus) (domain.PartProposal, error) {
	if !domain.CanReview(from, to) {
		return domain.PartProposal{}, domain.ErrInvalidTransition
	}

	moved, err := s.proposals.Review(ctx, proposalID, from, to, reviewerID, notes)
	if err != nil {
		return domain.PartProposal{}, fmt.Errorf("failed to update proposal: %w", err)
	}
	if !moved {
		return domain.PartProposal{}, domain.ErrInvalidTransition
	}

	s.logger.Info().
		Str("proposal_id", proposalID.String()).
		Str("reviewer_id", reviewerID.String()).
		Str("status", string(to)).
		Msg("proposal reviewed")

	return s.proposals.GetByID(ctx, proposalID)
}

// Publish writes an approved proposal into the catalog: updating the
// matched item under an optimistic-concurrency check, or creating a new
// item when no match was attached. The published stamp and the catalog
// write commit together; the stamp is claimed first so concurrent
// publishers of the same proposal resolve to exactly one catalog write.
func (s *Service) Publish(ctx context.Context, proposalID, actorID uuid.UUID) (domain.PartProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return domain.PartProposal{}, err
	}
	if proposal.Status != domain.ProposalApproved {
		return domain.PartProposal{}, domain.ErrInvalidTransition
	}

	entry := domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		ProposalID: proposalID,
		NewData:    domain.Clone(proposal.ProposedData),
		CreatedAt:  time.Now().UTC(),
	}

	err = s.tx.InTx(ctx, func(proposals repository.ProposalRepository, catalog repository.CatalogRepository) error {
		// Claim approved → published before touching the catalog. The
		// conditional update admits one winner; a losing publisher exits
		// here, and a failed catalog write below rolls the claim back.
		moved, err := proposals.MarkPublished(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("failed to mark proposal published: %w", err)
		}
		if !moved {
			return domain.ErrInvalidTransition
		}

		if proposal.ProposedPartID != nil {
			current, err := catalog.GetByID(ctx, *proposal.ProposedPartID)
			if err != nil {
				return fmt.Errorf("failed to load matched item: %w", err)
			}
			updated := current.ApplyProposal(proposal.ProposedData)
			item, ok, err := catalog.UpdateVersioned(ctx, updated, current.Version)
			if err != nil {
				return fmt.Errorf("failed to update catalog item: %w", err)
			}
			if !ok {
				// A separate catalog edit won the race; fail cleanly rather
				// than clobber it.
				return domain.ErrConcurrentModification
			}
			entry.Action = domain.AuditUpdate
			entry.EntityID = item.ID
			entry.OldData = domain.AttributeBag{
				"name":     current.Name,
				"brand":    current.Brand,
				"category": current.Category,
				"version":  current.Version,
			}
			return nil
		}

		entityType := domain.EntityPart
		if proposal.ProposedData.String("category") == "engine" {
			entityType = domain.EntityEngine
		}
		item, err := catalog.Create(ctx, domain.NewCatalogItem(entityType, proposal.ProposedData, proposalID))
		if err != nil {
			return fmt.Errorf("failed to create catalog item: %w", err)
		}
		entry.Action = domain.AuditCreate
		entry.EntityID = item.ID
		return nil
	})
	if err != nil {
		return domain.PartProposal{}, err
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		// The catalog write already landed; log and continue.
		s.logger.Error().Err(err).
			Str("proposal_id", proposalID.String()).
			Msg("failed to record audit entry")
	}

	s.logger.Info().
		Str("proposal_id", proposalID.String()).
		Str("entity_id", entry.EntityID.String()).
		Str("action", string(entry.Action)).
		Msg("proposal published")

	return s.proposals.GetByID(ctx, proposalID)
}

// BulkPublishResult splits a bulk publish into per-proposal outcomes.
type BulkPublishResult struct {
	Published []uuid.UUID          `json:"published"`
	Failed    map[uuid.UUID]string `json:"failed,omitempty"`
}

// BulkPublish publishes a set of approved proposals, continuing past
// individual failures.
func (s *Service) BulkPublish(ctx context.Context, proposalIDs []uuid.UUID, actorID uuid.UUID) BulkPublishResult {
	result := BulkPublishResult{Failed: map[uuid.UUID]string{}}
	for _, id := range proposalIDs {
		if _, err := s.Publish(ctx, id, actorID); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Published = append(result.Published, id)
	}
	return result
}
