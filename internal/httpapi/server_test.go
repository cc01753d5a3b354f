package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperdesk/internal/domain"
	"paperdesk/internal/extract"
	"paperdesk/internal/service"
)

type stubService struct {
	answer   *domain.GroundedAnswer
	compared *domain.ComparisonResult
	infos    []service.DocumentInfo
	ingested *service.IngestResult
	err      error
}

func (s *stubService) Ingest(context.Context, string, []domain.PageText, service.Metadata) (*service.IngestResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ingested, nil
}

func (s *stubService) Query(_ context.Context, id, question string) (*domain.GroundedAnswer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func (s *stubService) Summarize(context.Context, string) (*domain.GroundedAnswer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func (s *stubService) Compare(_ context.Context, ids []string, _ string) (*domain.ComparisonResult, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 documents", domain.ErrInvalidInput)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.compared, nil
}

func (s *stubService) Delete(_ context.Context, id string) error { return s.err }

func (s *stubService) List() []service.DocumentInfo { return s.infos }

type stubHealth struct{ err error }

func (s *stubHealth) CheckConnection(context.Context) error { return s.err }

func newTestServer(t *testing.T, svc *stubService, health HealthChecker) *Server {
	t.Helper()
	return NewServer(svc, health, slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir(), 50)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("{}")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestQueryEndpoint(t *testing.T) {
	svc := &stubService{answer: &domain.GroundedAnswer{
		Text:       "Grounded [Page 3].",
		CitedPages: []int{3},
		ChunksUsed: 8,
		Confidence: 0.74,
		Stats:      domain.AnswerStats{WordCount: 2, CitationCount: 1, UniqueCitations: 1, CitationDensity: 0.5},
	}}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodPost, "/query/doc_abc", `{"question":"what is the main finding?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Grounded [Page 3].", body["answer"])
	assert.Equal(t, 0.74, body["confidence_score"])
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, float64(1), meta["citation_count"])
}

func TestQueryEndpoint_ValidationError(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: question too short", domain.ErrInvalidInput)}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodPost, "/query/doc_abc", `{"question":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "question too short")
}

func TestQueryEndpoint_NotFound(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: doc_abc", domain.ErrNotFound)}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodPost, "/query/doc_abc", `{"question":"what is the main finding?"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpoint_GenerationFailure(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("query doc_abc: %w", domain.ErrGeneration)}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodPost, "/query/doc_abc", `{"question":"what is the main finding?"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCompareEndpoint_TooFewDocuments(t *testing.T) {
	rec := doJSON(t, newTestServer(t, &stubService{}, nil), http.MethodPost, "/compare", `{"collection_ids":["doc_a"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareEndpoint(t *testing.T) {
	svc := &stubService{compared: &domain.ComparisonResult{
		Documents: []domain.DocumentSummary{
			{DocumentID: "doc_a", Filename: "a.pdf", Quality: 80},
			{DocumentID: "doc_b", Filename: "b.pdf", Quality: 70},
		},
		Analysis:   "Paper 1 is stronger [Paper 1].",
		Similarity: [][]float64{{100, 90}, {90, 100}},
		Type:       "comprehensive",
	}}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodPost, "/compare", `{"collection_ids":["doc_a","doc_b"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_papers"])
	assert.Equal(t, "comprehensive", body["comparison_type"])
	papers := body["papers"].([]any)
	require.Len(t, papers, 2)
	assert.Equal(t, "a.pdf", papers[0].(map[string]any)["filename"])
}

func TestListEndpoint(t *testing.T) {
	svc := &stubService{infos: []service.DocumentInfo{{
		Document: domain.Document{ID: "doc_a", Filename: "a.pdf", PageCount: 3, ChunkCount: 12, UploadedAt: time.Now()},
		Quality:  domain.QualityScore{Overall: 81.5},
	}}}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodGet, "/collections", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total"])
	row := body["collections"].([]any)[0].(map[string]any)
	assert.Equal(t, "doc_a", row["collection_id"])
	assert.Equal(t, 81.5, row["quality_score"].(map[string]any)["overall_score"])
}

func TestDeleteEndpoint_NotFound(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: doc_zzz", domain.ErrNotFound)}
	rec := doJSON(t, newTestServer(t, svc, nil), http.MethodDelete, "/collection/doc_zzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	rec := doJSON(t, newTestServer(t, &stubService{}, &stubHealth{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["ollama_status"])
	assert.Equal(t, float64(0), body["active_collections"])
}

func TestHealthEndpoint_OllamaDown(t *testing.T) {
	rec := doJSON(t, newTestServer(t, &stubService{}, &stubHealth{err: fmt.Errorf("refused")}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", decode(t, rec)["ollama_status"])
}

func doUpload(t *testing.T, srv *Server, filename, payload string) *httptest.ResponseRecorder {
	t.Helper()
	boundary := "testboundary"
	var buf strings.Builder
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"" + filename + "\"\r\n")
	buf.WriteString("Content-Type: application/pdf\r\n\r\n")
	buf.WriteString(payload + "\r\n")
	buf.WriteString("--" + boundary + "--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(buf.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestUploadEndpoint_RejectsNonPDF(t *testing.T) {
	rec := doUpload(t, newTestServer(t, &stubService{}, nil), "notes.txt", "plain text payload")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "only PDF files are supported")
}

func TestUploadEndpoint_RejectsTinyFile(t *testing.T) {
	srv := newTestServer(t, &stubService{}, nil)
	rec := doUpload(t, srv, "small.pdf", "%PDF-1.4 truncated")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "too small")
	assertUploadDirEmpty(t, srv)
}

func TestUploadEndpoint_RemovesStagedFile(t *testing.T) {
	svc := &stubService{ingested: &service.IngestResult{
		DocumentID: "doc_abc123",
		ChunkCount: 4,
		Quality:    domain.QualityScore{Overall: 80},
	}}
	srv := newTestServer(t, svc, nil)
	srv.extract = func(path string) (*extract.Result, error) {
		return &extract.Result{
			Pages:     []domain.PageText{{Number: 1, Text: "page one text"}},
			PageCount: 1,
			Title:     "T",
			Author:    "A",
		}, nil
	}

	rec := doUpload(t, srv, "paper.pdf", strings.Repeat("%PDF-1.4 padding ", 100))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc_abc123", decode(t, rec)["collection_id"])
	assertUploadDirEmpty(t, srv)
}

func TestUploadEndpoint_RemovesStagedFileOnExtractionFailure(t *testing.T) {
	srv := newTestServer(t, &stubService{}, nil)
	srv.extract = func(path string) (*extract.Result, error) {
		return nil, fmt.Errorf("malformed xref table")
	}

	rec := doUpload(t, srv, "broken.pdf", strings.Repeat("%PDF-1.4 padding ", 100))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assertUploadDirEmpty(t, srv)
}

func assertUploadDirEmpty(t *testing.T, srv *Server) {
	t.Helper()
	entries, err := os.ReadDir(srv.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged uploads must not outlive the request")
}
