package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus is the review lifecycle of a PartProposal.
type ProposalStatus string

const (
	ProposalProposed  ProposalStatus = "proposed"
	ProposalApproved  ProposalStatus = "approved"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalPublished ProposalStatus = "published"
)

// proposalTransitions lists the permitted review edges. A proposal can
// never skip approval on its way to published, and a reviewer may reverse
// an approval up until publish.
var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalProposed: {ProposalApproved, ProposalRejected},
	ProposalApproved: {ProposalPublished, ProposalRejected},
}

// CanReview reports whether from → to is a legal proposal transition.
func CanReview(from, to ProposalStatus) bool {
	for _, next := range proposalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PartProposal is a candidate catalog item derived from one raw record,
// awaiting human review. ProposedPartID and MatchConfidence are set
// together or not at all.
type PartProposal struct {
	ID              uuid.UUID      `json:"id"`
	JobID           uuid.UUID      `json:"job_id"`
	RawRecordID     uuid.UUID      `json:"raw_record_id"`
	ProposedData    AttributeBag   `json:"proposed_data"`
	ProposedPartID  *uuid.UUID     `json:"proposed_part_id,omitempty"`
	MatchConfidence *float64       `json:"match_confidence,omitempty"`
	MatchReason     string         `json:"match_reason,omitempty"`
	Status          ProposalStatus `json:"status"`
	ReviewedBy      *uuid.UUID     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	ReviewNotes     string         `json:"review_notes,omitempty"`
	PublishedAt     *time.Time     `json:"published_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewPartProposal creates a proposal in the proposed state.
func NewPartProposal(jobID, rawRecordID uuid.UUID, data AttributeBag) PartProposal {
	return PartProposal{
		ID:           uuid.New(),
		JobID:        jobID,
		RawRecordID:  rawRecordID,
		ProposedData: Clone(data),
		Status:       ProposalProposed,
		CreatedAt:    time.Now().UTC(),
	}
}

// WithMatch attaches the matched catalog item and its confidence.
func (p PartProposal) WithMatch(partID uuid.UUID, confidence float64, reason string) PartProposal {
	id := partID
	c := confidence
	p.ProposedPartID = &id
	p.MatchConfidence = &c
	p.MatchReason = reason
	return p
}
