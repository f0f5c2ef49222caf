package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/ingestion"
	"github.com/kartlab/catalogd/internal/middleware"
	"github.com/kartlab/catalogd/internal/repository"
	"github.com/kartlab/catalogd/internal/review"
	"github.com/kartlab/catalogd/internal/scanner"
)

// maxUploadBytes caps multipart spreadsheet uploads at 32 MB.
const maxUploadBytes = 32 << 20

// Server holds the HTTP handlers over the pipeline services.
type Server struct {
	jobs      repository.ImportJobRepository
	records   repository.RawRecordRepository
	proposals repository.ProposalRepository
	catalog   repository.CatalogRepository
	runner    *ingestion.Runner
	review    *review.Service
	scanner   *scanner.Scanner
	logger    zerolog.Logger
}

// New wires a server over its repositories and services.
func New(
	jobs repository.ImportJobRepository,
	records repository.RawRecordRepository,
	proposals repository.ProposalRepository,
	catalog repository.CatalogRepository,
	runner *ingestion.Runner,
	reviewSvc *review.Service,
	scan *scanner.Scanner,
	logger zerolog.Logger,
) *Server {
	return &Server{
		jobs:      jobs,
		records:   records,
		proposals: proposals,
		catalog:   catalog,
		runner:    runner,
		review:    reviewSvc,
		scanner:   scan,
		logger:    logger,
	}
}

// Routes builds the chi router with the standard middleware chain.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/import-jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateImportJob)
		r.Post("/upload", s.handleUploadImportJob)
		r.Get("/", s.handleListImportJobs)
		r.Get("/{id}", s.handleGetImportJob)
		r.Post("/{id}/generate-proposals", s.handleGenerateProposals)
		r.Post("/{id}/cancel", s.handleCancelImportJob)
		r.Get("/{id}/proposals", s.handleListJobProposals)
	})

	r.Route("/proposals", func(r chi.Router) {
		r.Get("/", s.handleListProposals)
		r.Get("/{id}", s.handleGetProposal)
		r.Post("/{id}/approve", s.handleApproveProposal)
		r.Post("/{id}/reject", s.handleRejectProposal)
		r.Post("/{id}/publish", s.handlePublishProposal)
		r.Post("/bulk-publish", s.handleBulkPublish)
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", s.handleListCatalog)
		r.Get("/duplicates", s.handleDuplicates)
		r.Get("/quality-report", s.handleQualityReport)
		r.Get("/export", s.handleExportCatalog)
		r.Get("/{id}", s.handleGetCatalogItem)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Unrecognized errors
// come back as opaque 500s so repository internals never leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ne *domain.NormalizationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found", Code: "not_found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, domain.ErrAlreadyProcessed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "already_processed"})
	case errors.Is(err, domain.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "concurrent_modification"})
	case errors.Is(err, domain.ErrCatalogUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: "catalog_unavailable"})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "normalization_error"})
	default:
		s.logger.Error().
			Str("rid", middleware.GetRequestID(r)).
			Str("path", r.URL.Path).
			Err(err).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Code: "bad_request"})
}

// pagination reads limit/offset query params, defaulting to 100/0.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = 100, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
