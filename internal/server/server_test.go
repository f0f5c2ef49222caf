package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kartlab/catalogd/internal/domain"
	"github.com/kartlab/catalogd/internal/ingestion"
	"github.com/kartlab/catalogd/internal/matching"
	"github.com/kartlab/catalogd/internal/repository"
	"github.com/kartlab/catalogd/internal/review"
	"github.com/kartlab/catalogd/internal/scanner"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]domain.ImportJob
}

func (s *memJobRepo) Create(_ context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return job, nil
}

func (s *memJobRepo) GetByID(_ context.Context, id uuid.UUID) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ImportJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (s *memJobRepo) List(_ context.Context, status domain.JobStatus, _, _ int) ([]domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ImportJob{}
	for _, job := range s.jobs {
		if status == "" || job.Status == status {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *memJobRepo) SetTotalRows(_ context.Context, id uuid.UUID, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	job.TotalRows = total
	s.jobs[id] = job
	return nil
}

func (s *memJobRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to domain.JobStatus) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, domain.ErrInvalidTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	s.jobs[id] = job
	return true, nil
}

func (s *memJobRepo) UpdateProgress(_ context.Context, id uuid.UUID, processedRows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	if processedRows > job.ProcessedRows {
		if processedRows > job.TotalRows {
			processedRows = job.TotalRows
		}
		job.ProcessedRows = processedRows
		s.jobs[id] = job
	}
	return nil
}

func (s *memJobRepo) Fail(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	if job.Status == domain.JobProcessing {
		job.Status = domain.JobFailed
		job.ErrorMessage = message
		s.jobs[id] = job
	}
	return nil
}

type memRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.ImportRawRecord
	order   []uuid.UUID
}

func (s *memRecordRepo) CreateBatch(_ context.Context, records []domain.ImportRawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.records[record.ID] = record
		s.order = append(s.order, record.ID)
	}
	return nil
}

func (s *memRecordRepo) ListByJob(_ context.Context, jobID uuid.UUID) ([]domain.ImportRawRecord, error) {
	return s.list(jobID, "")
}

func (s *memRecordRepo) ListPending(_ context.Context, jobID uuid.UUID) ([]domain.ImportRawRecord, error) {
	return s.list(jobID, domain.RecordPending)
}

func (s *memRecordRepo) list(jobID uuid.UUID, status domain.RecordStatus) ([]domain.ImportRawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ImportRawRecord{}
	for _, id := range s.order {
		record := s.records[id]
		if record.JobID != jobID {
			continue
		}
		if status != "" && record.Status != status {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *memRecordRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return s.resolve(id, domain.RecordProcessed, "")
}

func (s *memRecordRepo) MarkError(_ context.Context, id uuid.UUID, message string) error {
	return s.resolve(id, domain.RecordError, message)
}

func (s *memRecordRepo) resolve(id uuid.UUID, to domain.RecordStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok || record.Status != domain.RecordPending {
		return nil
	}
	record.Status = to
	record.ErrorMessage = message
	s.records[id] = record
	return nil
}

type memProposalRepo struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]domain.PartProposal
}

func (s *memProposalRepo) Create(_ context.Context, proposal domain.PartProposal) (domain.PartProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[proposal.ID] = proposal
	return proposal, nil
}

func (s *memProposalRepo) GetByID(_ context.Context, id uuid.UUID) (domain.PartProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[id]
	if !ok {
		return domain.PartProposal{}, domain.ErrNotFound
	}
	return proposal, nil
}

func (s *memProposalRepo) ListByJob(_ context.Context, jobID uuid.UUID) ([]domain.PartProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PartProposal{}
	for _, proposal := range s.proposals {
		if proposal.JobID == jobID {
			out = append(out, proposal)
		}
	}
	return out, nil
}

func (s *memProposalRepo) List(_ context.Context, filter repository.ProposalFilter) ([]domain.PartProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PartProposal{}
	for _, proposal := range s.proposals {
		if filter.Status != "" && proposal.Status != filter.Status {
			continue
		}
		if filter.JobID != nil && proposal.JobID != *filter.JobID {
			continue
		}
		if filter.Category != "" && proposal.ProposedData.String("category") != filter.Category {
			continue
		}
		out = append(out, proposal)
	}
	return out, nil
}

func (s *memProposalRepo) CountByJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	proposals, _ := s.ListByJob(ctx, jobID)
	return len(proposals), nil
}

func (s *memProposalRepo) Review(_ context.Context, id uuid.UUID, from, to domain.ProposalStatus, reviewerID uuid.UUID, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[id]
	if !ok || proposal.Status != from {
		return false, nil
	}
	proposal.Status = to
	proposal.ReviewedBy = &reviewerID
	proposal.ReviewNotes = notes
	s.proposals[id] = proposal
	return true, nil
}

func (s *memProposalRepo) MarkPublished(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[id]
	if !ok || proposal.Status != domain.ProposalApproved {
		return false, nil
	}
	proposal.Status = domain.ProposalPublished
	s.proposals[id] = proposal
	return true, nil
}

type memCatalogRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.CatalogItem
}

func (s *memCatalogRepo) List(_ context.Context) ([]domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.CatalogItem{}
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, nil
}

func (s *memCatalogRepo) GetByID(_ context.Context, id uuid.UUID) (domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return domain.CatalogItem{}, domain.ErrNotFound
	}
	return item, nil
}

func (s *memCatalogRepo) Create(_ context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return item, nil
}

func (s *memCatalogRepo) UpdateVersioned(_ context.Context, item domain.CatalogItem, expectedVersion int64) (domain.CatalogItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[item.ID]
	if !ok || current.Version != expectedVersion {
		return domain.CatalogItem{}, false, nil
	}
	item.Version = expectedVersion + 1
	s.items[item.ID] = item
	return item, true, nil
}

type memAuditRepo struct{}

func (memAuditRepo) Record(context.Context, domain.AuditEntry) error { return nil }

type memTxManager struct {
	proposals repository.ProposalRepository
	catalog   repository.CatalogRepository
}

func (m memTxManager) InTx(_ context.Context, fn func(repository.ProposalRepository, repository.CatalogRepository) error) error {
	return fn(m.proposals, m.catalog)
}

func newTestServer() (*Server, *memProposalRepo, *memCatalogRepo) {
	jobs := &memJobRepo{jobs: map[uuid.UUID]domain.ImportJob{}}
	records := &memRecordRepo{records: map[uuid.UUID]domain.ImportRawRecord{}}
	proposals := &memProposalRepo{proposals: map[uuid.UUID]domain.PartProposal{}}
	catalog := &memCatalogRepo{items: map[uuid.UUID]domain.CatalogItem{}}

	matcher := matching.NewMatcher(matching.NewScorer(matching.DefaultWeights()), matching.DefaultThresholds())
	runner := ingestion.NewRunner(jobs, records, proposals, catalog, matcher, 2, zerolog.Nop())
	reviewSvc := review.NewService(proposals, memAuditRepo{}, memTxManager{proposals: proposals, catalog: catalog}, zerolog.Nop())
	scan := scanner.NewScanner(catalog, matching.NewScorer(matching.DefaultWeights()), 0.85, 2, zerolog.Nop())

	return New(jobs, records, proposals, catalog, runner, reviewSvc, scan, zerolog.Nop()), proposals, catalog
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestImportJobLifecycleOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Routes()

	create := doJSON(t, router, http.MethodPost, "/import-jobs", map[string]any{
		"name":        "august import",
		"source_type": "spreadsheet",
		"created_by":  uuid.New(),
		"rows": []map[string]any{
			{"name": "Predator 212cc Hemi", "brand": "Predator", "category": "engine", "price": 169.99},
		},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body)
	}
	var job domain.ImportJob
	if err := json.Unmarshal(create.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to decode job: %v", err)
	}
	if job.Status != domain.JobPending || job.TotalRows != 1 {
		t.Fatalf("unexpected created job: %+v", job)
	}

	generate := doJSON(t, router, http.MethodPost, fmt.Sprintf("/import-jobs/%s/generate-proposals", job.ID), nil)
	if generate.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", generate.Code, generate.Body)
	}
	var generated map[string]int
	_ = json.Unmarshal(generate.Body.Bytes(), &generated)
	if generated["generated"] != 1 {
		t.Fatalf("expected 1 generated proposal, got %v", generated)
	}

	// Re-running proposal generation on a completed job conflicts.
	again := doJSON(t, router, http.MethodPost, fmt.Sprintf("/import-jobs/%s/generate-proposals", job.ID), nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-run, got %d", again.Code)
	}

	detail := doJSON(t, router, http.MethodGet, fmt.Sprintf("/import-jobs/%s", job.ID), nil)
	if detail.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", detail.Code)
	}
	var withRecords struct {
		Status     domain.JobStatus         `json:"status"`
		RawRecords []domain.ImportRawRecord `json:"raw_records"`
	}
	_ = json.Unmarshal(detail.Body.Bytes(), &withRecords)
	if withRecords.Status != domain.JobCompleted || len(withRecords.RawRecords) != 1 {
		t.Fatalf("unexpected job detail: %+v", withRecords)
	}

	list := doJSON(t, router, http.MethodGet, fmt.Sprintf("/import-jobs/%s/proposals", job.ID), nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
}

func TestCreateImportJobValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Routes()

	cases := []map[string]any{
		{"source_type": "ftp-drop", "rows": []map[string]any{{"name": "x"}}},
		{"source_type": "spreadsheet"},
	}
	for _, body := range cases {
		rec := doJSON(t, router, http.MethodPost, "/import-jobs", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, rec.Code)
		}
	}
}

func TestUnknownJobReturns404(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Routes()

	rec := doJSON(t, router, http.MethodGet, "/import-jobs/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	bad := doJSON(t, router, http.MethodGet, "/import-jobs/not-a-uuid", nil)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", bad.Code)
	}
}

func TestReviewEndpointsEnforceTransitions(t *testing.T) {
	srv, proposals, catalog := newTestServer()
	router := srv.Routes()

	proposal := domain.NewPartProposal(uuid.New(), uuid.New(), domain.AttributeBag{
		"name":     "Predator 212cc Hemi",
		"category": "engine",
	})
	_, _ = proposals.Create(context.Background(), proposal)

	reviewer := map[string]any{"reviewer_id": uuid.New()}

	// Publish before approval conflicts.
	premature := doJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID.String()+"/publish", reviewer)
	if premature.Code != http.StatusConflict {
		t.Fatalf("expected 409 publishing unapproved proposal, got %d", premature.Code)
	}

	approve := doJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID.String()+"/approve", reviewer)
	if approve.Code != http.StatusOK {
		t.Fatalf("expected 200 on approve, got %d: %s", approve.Code, approve.Body)
	}

	publish := doJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID.String()+"/publish", reviewer)
	if publish.Code != http.StatusOK {
		t.Fatalf("expected 200 on publish, got %d: %s", publish.Code, publish.Body)
	}

	items, _ := catalog.List(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected published proposal to create one catalog entry, got %d", len(items))
	}

	// Approving a published proposal conflicts.
	late := doJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID.String()+"/approve", reviewer)
	if late.Code != http.StatusConflict {
		t.Fatalf("expected 409 approving published proposal, got %d", late.Code)
	}

	missingReviewer := doJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID.String()+"/approve", map[string]any{})
	if missingReviewer.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reviewer_id, got %d", missingReviewer.Code)
	}
}

func TestUploadSpreadsheetCreatesJob(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Routes()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("file", "parts.csv")
	_, _ = part.Write([]byte("name,category,price\nPredator 212,engine,169.99\n"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/import-jobs/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var job domain.ImportJob
	_ = json.Unmarshal(rec.Body.Bytes(), &job)
	if job.TotalRows != 1 || job.SourceType != domain.SourceSpreadsheet {
		t.Fatalf("unexpected uploaded job: %+v", job)
	}
	if job.Name != "parts.csv" {
		t.Fatalf("expected file name as default job name, got %q", job.Name)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Routes()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("file", "parts.pdf")
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/import-jobs/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported") {
		t.Fatalf("expected unsupported-format message, got %s", rec.Body)
	}
}

func TestQualityEndpoints(t *testing.T) {
	srv, _, catalog := newTestServer()
	router := srv.Routes()

	price := 165.00
	a := domain.CatalogItem{ID: uuid.New(), Name: "Predator 212 Hemi Engine", Brand: "Predator", Category: "engine", Price: &price, Version: 1}
	b := domain.CatalogItem{ID: uuid.New(), Name: "Predator 212 Hemi Engine", Brand: "Predator", Category: "engine", Price: &price, Version: 1}
	_, _ = catalog.Create(context.Background(), a)
	_, _ = catalog.Create(context.Background(), b)

	dup := doJSON(t, router, http.MethodGet, "/catalog/duplicates", nil)
	if dup.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", dup.Code)
	}
	var dupBody struct {
		Duplicates []domain.DuplicateCandidate `json:"duplicates"`
	}
	_ = json.Unmarshal(dup.Body.Bytes(), &dupBody)
	if len(dupBody.Duplicates) != 1 {
		t.Fatalf("expected 1 duplicate pair, got %d", len(dupBody.Duplicates))
	}

	quality := doJSON(t, router, http.MethodGet, "/catalog/quality-report", nil)
	if quality.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", quality.Code)
	}
	var report domain.QualityReport
	_ = json.Unmarshal(quality.Body.Bytes(), &report)
	if report.TotalItems != 2 {
		t.Fatalf("expected 2 items in quality report, got %d", report.TotalItems)
	}
}
