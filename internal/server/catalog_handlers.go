package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kartlab/catalogd/internal/export"
)

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetCatalogItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid catalog item id")
		return
	}

	item, err := s.catalog.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleExportCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.csv"`)
	if err := export.WriteCatalogCSV(w, items); err != nil {
		s.logger.Error().Err(err).Msg("catalog export failed mid-stream")
	}
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.scanner.FindDuplicates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"duplicates": candidates})
}

func (s *Server) handleQualityReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.scanner.QualityReport(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
