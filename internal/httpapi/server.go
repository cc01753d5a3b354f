// Package httpapi exposes the document pipeline over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"paperdesk/internal/domain"
	"paperdesk/internal/extract"
	"paperdesk/internal/service"
)

// Service is the handler-facing subset of the application core.
type Service interface {
	Ingest(ctx context.Context, filename string, pages []domain.PageText, meta service.Metadata) (*service.IngestResult, error)
	Query(ctx context.Context, id, question string) (*domain.GroundedAnswer, error)
	Summarize(ctx context.Context, id string) (*domain.GroundedAnswer, error)
	Compare(ctx context.Context, ids []string, comparisonType string) (*domain.ComparisonResult, error)
	Delete(ctx context.Context, id string) error
	List() []service.DocumentInfo
}

// HealthChecker reports whether the generation service is reachable.
type HealthChecker interface {
	CheckConnection(ctx context.Context) error
}

const minUploadBytes = 1024

type Server struct {
	svc       Service
	health    HealthChecker
	logger    *slog.Logger
	uploadDir string
	maxUpload int64
	extract   func(path string) (*extract.Result, error)
}

func NewServer(svc Service, health HealthChecker, logger *slog.Logger, uploadDir string, maxUploadMB int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Server{
		svc:       svc,
		health:    health,
		logger:    logger,
		uploadDir: uploadDir,
		maxUpload: int64(maxUploadMB) << 20,
		extract:   extract.PDF,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/query/{id}", s.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/summarize/{id}", s.handleSummarize).Methods(http.MethodPost)
	r.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	r.HandleFunc("/collections", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/collection/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return r
}

type qualityJSON struct {
	OverallScore     float64 `json:"overall_score"`
	MethodologyScore int     `json:"methodology_score"`
	DataScore        int     `json:"data_score"`
	CitationScore    int     `json:"citation_score"`
	ClarityScore     int     `json:"clarity_score"`
	Assessment       string  `json:"assessment"`
}

func toQualityJSON(q domain.QualityScore) qualityJSON {
	return qualityJSON{
		OverallScore:     q.Overall,
		MethodologyScore: q.Methodology,
		DataScore:        q.Data,
		CitationScore:    q.Citation,
		ClarityScore:     q.Clarity,
		Assessment:       q.Assessment,
	}
}

type answerJSON struct {
	Answer     string   `json:"answer"`
	CitedPages []int    `json:"cited_pages"`
	ChunksUsed int      `json:"chunks_used"`
	Confidence float64  `json:"confidence_score"`
	Metadata   struct {
		WordCount       int     `json:"word_count"`
		CitationCount   int     `json:"citation_count"`
		UniqueCitations int     `json:"unique_citations"`
		CitationDensity float64 `json:"citation_density"`
	} `json:"metadata"`
}

func toAnswerJSON(a *domain.GroundedAnswer) answerJSON {
	out := answerJSON{
		Answer:     a.Text,
		CitedPages: a.CitedPages,
		ChunksUsed: a.ChunksUsed,
		Confidence: a.Confidence,
	}
	out.Metadata.WordCount = a.Stats.WordCount
	out.Metadata.CitationCount = a.Stats.CitationCount
	out.Metadata.UniqueCitations = a.Stats.UniqueCitations
	out.Metadata.CitationDensity = a.Stats.CitationDensity
	return out
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: missing file field: %v", domain.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.writeError(w, fmt.Errorf("%w: only PDF files are supported", domain.ErrInvalidInput))
		return
	}

	path := filepath.Join(s.uploadDir, uuid.New().String()+".pdf")
	if err := s.saveUpload(path, file); err != nil {
		s.writeError(w, err)
		return
	}
	// the file is staged only for extraction; everything downstream works on
	// the extracted pages
	defer os.Remove(path)

	result, err := s.extract(path)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrExtraction, err))
		return
	}

	res, err := s.svc.Ingest(r.Context(), header.Filename, result.Pages, service.Metadata{
		Title:     result.Title,
		Author:    result.Author,
		PageCount: result.PageCount,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"collection_id": res.DocumentID,
		"filename":      header.Filename,
		"total_pages":   result.PageCount,
		"total_chunks":  res.ChunkCount,
		"quality_score": toQualityJSON(res.Quality),
	})
}

func (s *Server) saveUpload(path string, file io.Reader) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	defer dst.Close()
	n, err := io.Copy(dst, file)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("save upload: %w", err)
	}
	if n < minUploadBytes {
		os.Remove(path)
		return fmt.Errorf("%w: file too small to be a valid PDF", domain.ErrInvalidInput)
	}
	return nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
		return
	}
	ans, err := s.svc.Query(r.Context(), id, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAnswerJSON(ans))
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ans, err := s.svc.Summarize(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"summary":          ans.Text,
		"cited_pages":      ans.CitedPages,
		"chunks_used":      ans.ChunksUsed,
		"confidence_score": ans.Confidence,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectionIDs  []string `json:"collection_ids"`
		ComparisonType string   `json:"comparison_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
		return
	}
	res, err := s.svc.Compare(r.Context(), req.CollectionIDs, req.ComparisonType)
	if err != nil {
		s.writeError(w, err)
		return
	}

	papers := make([]map[string]any, len(res.Documents))
	for i, d := range res.Documents {
		papers[i] = map[string]any{
			"collection_id": d.DocumentID,
			"filename":      d.Filename,
			"author":        d.Author,
			"pages":         d.PageCount,
			"summary":       d.Summary,
			"quality_score": d.Quality,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"papers":              papers,
		"comparison_analysis": res.Analysis,
		"similarity_matrix":   res.Similarity,
		"total_papers":        len(res.Documents),
		"comparison_type":     res.Type,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos := s.svc.List()
	out := make([]map[string]any, len(infos))
	for i, info := range infos {
		out[i] = map[string]any{
			"collection_id": info.Document.ID,
			"filename":      info.Document.Filename,
			"title":         info.Document.Title,
			"author":        info.Document.Author,
			"total_pages":   info.Document.PageCount,
			"total_chunks":  info.Document.ChunkCount,
			"uploaded_at":   info.Document.UploadedAt,
			"quality_score": toQualityJSON(info.Quality),
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"collections": out, "total": len(out)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "connected"
	if s.health != nil {
		if err := s.health.CheckConnection(r.Context()); err != nil {
			status = "disconnected"
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"ollama_status":      status,
		"active_collections": len(s.svc.List()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrNoChunks), errors.Is(err, domain.ErrExtraction):
		code = http.StatusUnprocessableEntity
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, code, map[string]string{"detail": err.Error()})
}
