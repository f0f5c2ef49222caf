package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/repository"
)

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	filter := repository.ProposalFilter{
		Status:   domain.ProposalStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := r.URL.Query().Get("job_id"); raw != "" {
		jobID, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "job_id must be a UUID")
			return
		}
		filter.JobID = &jobID
	}

	proposals, err := s.proposals.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid proposal id")
		return
	}

	proposal, err := s.proposals.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

type reviewRequest struct {
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Reason     string    `json:"reason,omitempty"`
}

func decodeReview(w http.ResponseWriter, r *http.Request) (uuid.UUID, reviewRequest, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid proposal id")
		return uuid.Nil, reviewRequest{}, false
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return uuid.Nil, reviewRequest{}, false
	}
	if req.ReviewerID == uuid.Nil {
		badRequest(w, "reviewer_id is required")
		return uuid.Nil, reviewRequest{}, false
	}
	return id, req, true
}

func (s *Server) handleApproveProposal(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	proposal, err := s.review.Approve(r.Context(), id, req.ReviewerID, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (s *Server) handleRejectProposal(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	proposal, err := s.review.Reject(r.Context(), id, req.ReviewerID, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (s *Server) handlePublishProposal(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	proposal, err := s.review.Publish(r.Context(), id, req.ReviewerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

type bulkPublishRequest struct {
	IDs        []uuid.UUID `json:"ids"`
	ReviewerID uuid.UUID   `json:"reviewer_id"`
}

func (s *Server) handleBulkPublish(w http.ResponseWriter, r *http.Request) {
	var req bulkPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		badRequest(w, "ids must not be empty")
		return
	}
	if req.ReviewerID == uuid.Nil {
		badRequest(w, "reviewer_id is required")
		return
	}

	result := s.review.BulkPublish(r.Context(), req.IDs, req.ReviewerID)
	writeJSON(w, http.StatusOK, result)
}
