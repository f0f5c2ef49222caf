package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/ingestion"
)

type createImportJobRequest struct {
	Name       string                `json:"name"`
	SourceType domain.SourceType     `json:"source_type"`
	CreatedBy  uuid.UUID             `json:"created_by"`
	Rows       []domain.AttributeBag `json:"rows"`
}

func (s *Server) handleCreateImportJob(w http.ResponseWriter, r *http.Request) {
	var req createImportJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if !domain.ValidSourceType(req.SourceType) {
		badRequest(w, "source_type must be spreadsheet or marketplace-link")
		return
	}
	if len(req.Rows) == 0 {
		badRequest(w, "rows must not be empty")
		return
	}

	job, err := s.runner.CreateJob(r.Context(), req.Name, req.SourceType, req.CreatedBy, req.Rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleUploadImportJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file field")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rows, err := ingestion.DecodeRows(header.Filename, payload)
	if err != nil {
		if errors.Is(err, ingestion.ErrUnsupportedFormat) {
			badRequest(w, err.Error())
			return
		}
		badRequest(w, "could not parse spreadsheet: "+err.Error())
		return
	}
	if len(rows) == 0 {
		badRequest(w, "spreadsheet contains no data rows")
		return
	}

	createdBy, err := optionalUUID(r.FormValue("created_by"))
	if err != nil {
		badRequest(w, "created_by must be a UUID")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	job, err := s.runner.CreateJob(r.Context(), name, domain.SourceSpreadsheet, createdBy, rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListImportJobs(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(r.URL.Query().Get("status"))
	limit, offset, err := pagination(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	jobs, err := s.jobs.List(r.Context(), status, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

type importJobDetail struct {
	domain.ImportJob
	RawRecords []domain.ImportRawRecord `json:"raw_records"`
}

func (s *Server) handleGetImportJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid job id")
		return
	}

	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.records.ListByJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importJobDetail{ImportJob: job, RawRecords: records})
}

func (s *Server) handleGenerateProposals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid job id")
		return
	}

	generated, err := s.runner.GenerateProposals(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"generated": generated})
}

func (s *Server) handleCancelImportJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid job id")
		return
	}

	if err := s.runner.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobProposals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid job id")
		return
	}

	if _, err := s.jobs.GetByID(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	proposals, err := s.proposals.ListByJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

func optionalUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
