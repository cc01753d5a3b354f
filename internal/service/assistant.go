// Package service wires the pipeline behind the producing interface the
// HTTP and interactive layers consume.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"paperdesk/internal/answer"
	"paperdesk/internal/compare"
	"paperdesk/internal/domain"
	"paperdesk/internal/index"
	"paperdesk/internal/quality"
	"paperdesk/internal/registry"
	"paperdesk/internal/retriever"
)

// Options bounds the pipeline; zero values take the spec defaults.
type Options struct {
	TopK                int
	BatchSize           int
	MaxCompareDocuments int
	CompareSampleSize   int
	SummarySampleSize   int
	QualitySampleSize   int
	MinQuestionRunes    int
}

func (o *Options) applyDefaults() {
	if o.TopK <= 0 {
		o.TopK = retriever.DefaultTopK
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxCompareDocuments <= 0 {
		o.MaxCompareDocuments = compare.DefaultMaxDocuments
	}
	if o.CompareSampleSize <= 0 {
		o.CompareSampleSize = compare.DefaultSampleSize
	}
	if o.SummarySampleSize <= 0 {
		o.SummarySampleSize = 10
	}
	if o.QualitySampleSize <= 0 {
		o.QualitySampleSize = quality.DefaultSampleSize
	}
	if o.MinQuestionRunes <= 0 {
		o.MinQuestionRunes = 10
	}
}

// Metadata is caller-supplied document metadata from extraction.
type Metadata struct {
	Title     string
	Author    string
	PageCount int
}

// IngestResult reports a completed ingest.
type IngestResult struct {
	DocumentID string
	ChunkCount int
	Quality    domain.QualityScore
}

// DocumentInfo is one row of the document listing.
type DocumentInfo struct {
	Document domain.Document
	Quality  domain.QualityScore
}

// Assistant is the application core: every operation is an independent unit
// of work against the shared registry and the external index and generation
// services. No operation retries an external call.
type Assistant struct {
	store     index.Store
	chunker   domain.Chunker
	retriever *retriever.Retriever
	generator *answer.Generator
	analyzer  *quality.Analyzer
	engine    *compare.Engine
	registry  *registry.Registry
	opts      Options
	logger    *slog.Logger
}

func New(store index.Store, chunker domain.Chunker, llm domain.Generator, logger *slog.Logger, opts Options) *Assistant {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	reg := registry.New()
	gen := answer.NewGenerator(llm)
	return &Assistant{
		store:     store,
		chunker:   chunker,
		retriever: retriever.New(store, opts.TopK),
		generator: gen,
		analyzer:  quality.NewAnalyzer(llm, opts.QualitySampleSize),
		engine:    compare.NewEngine(reg, store, gen, llm, opts.MaxCompareDocuments, opts.CompareSampleSize),
		registry:  reg,
		opts:      opts,
		logger:    logger,
	}
}

// Ingest chunks the extracted pages, indexes them in fixed-size batches, and
// registers the document with its quality score. A partial batch failure
// tears the collection back down and surfaces as an ingest failure; the
// caller retries the whole document, never resumes.
func (a *Assistant) Ingest(ctx context.Context, filename string, pages []domain.PageText, meta Metadata) (*IngestResult, error) {
	var chunks []domain.Chunk
	for _, page := range pages {
		chunks = append(chunks, a.chunker.Chunk(page.Text, page.Number)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoChunks, filename)
	}

	id := "doc_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	if err := a.store.CreateCollection(ctx, id); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", id, err)
	}
	for start := 0; start < len(chunks); start += a.opts.BatchSize {
		end := min(start+a.opts.BatchSize, len(chunks))
		if err := a.store.AddBatch(ctx, id, chunks[start:end]); err != nil {
			_ = a.store.DeleteCollection(ctx, id)
			return nil, fmt.Errorf("index batch %d-%d of %s: %w", start, end, filename, err)
		}
	}
	a.logger.Info("document indexed", "id", id, "filename", filename, "chunks", len(chunks))

	score := a.analyzer.Analyze(ctx, chunks)

	entry := &registry.Entry{
		Document: domain.Document{
			ID:         id,
			Filename:   filename,
			Title:      meta.Title,
			Author:     meta.Author,
			PageCount:  meta.PageCount,
			ChunkCount: len(chunks),
			UploadedAt: time.Now(),
		},
		Quality: score,
	}
	if err := a.registry.Put(entry); err != nil {
		_ = a.store.DeleteCollection(ctx, id)
		return nil, err
	}
	return &IngestResult{DocumentID: id, ChunkCount: len(chunks), Quality: score}, nil
}

// Query answers a question about one document from its top-ranked chunks.
// The question is validated before any retrieval call is made.
func (a *Assistant) Query(ctx context.Context, id, question string) (*domain.GroundedAnswer, error) {
	question = strings.TrimSpace(question)
	if utf8.RuneCountInString(question) < a.opts.MinQuestionRunes {
		return nil, fmt.Errorf("%w: question too short (minimum %d characters)", domain.ErrInvalidInput, a.opts.MinQuestionRunes)
	}
	entry, ok := a.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	results, err := a.retriever.Retrieve(ctx, entry.Document.ID, question)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	ans, err := a.generator.Generate(ctx, chunks, question)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", id, err)
	}
	a.logger.Info("query answered", "id", id, "confidence", ans.Confidence, "cited_pages", len(ans.CitedPages))
	return ans, nil
}

// Summarize produces a four-section grounded summary from a spread of the
// document's stored chunks.
func (a *Assistant) Summarize(ctx context.Context, id string) (*domain.GroundedAnswer, error) {
	entry, ok := a.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	chunks, err := a.store.GetAll(ctx, entry.Document.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", domain.ErrRetrieval, id, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: collection %s is empty", domain.ErrRetrieval, id)
	}
	sample := summarySample(chunks, a.opts.SummarySampleSize)
	ans, err := a.generator.Generate(ctx, sample, "")
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", id, err)
	}
	a.logger.Info("summary generated", "id", id, "confidence", ans.Confidence)
	return ans, nil
}

// Compare cross-analyzes 2..MaxCompareDocuments registered documents.
func (a *Assistant) Compare(ctx context.Context, ids []string, comparisonType string) (*domain.ComparisonResult, error) {
	res, err := a.engine.Compare(ctx, ids, comparisonType)
	if err != nil {
		return nil, err
	}
	a.logger.Info("comparison generated", "documents", len(ids), "type", res.Type)
	return res, nil
}

// Delete removes a document and cascades to its index collection. The
// registry entry is detached first so concurrent requests cannot resolve the
// id to a collection mid-teardown.
func (a *Assistant) Delete(ctx context.Context, id string) error {
	entry, ok := a.registry.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err := a.store.DeleteCollection(ctx, entry.Document.ID); err != nil {
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	a.logger.Info("document deleted", "id", id)
	return nil
}

// List returns metadata for every active document in upload order.
func (a *Assistant) List() []DocumentInfo {
	entries := a.registry.List()
	out := make([]DocumentInfo, len(entries))
	for i, e := range entries {
		out[i] = DocumentInfo{Document: e.Document, Quality: e.Quality}
	}
	return out
}

// summarySample spreads the sample across the document: everything when it
// fits, otherwise an even stride plus the final chunk so the conclusion is
// always represented.
func summarySample(chunks []domain.Chunk, size int) []domain.Chunk {
	if len(chunks) <= size {
		return chunks
	}
	step := len(chunks) / (size - 1)
	out := make([]domain.Chunk, 0, size)
	for i := 0; i < size-1; i++ {
		idx := i * step
		if idx >= len(chunks) {
			break
		}
		out = append(out, chunks[idx])
	}
	return append(out, chunks[len(chunks)-1])
}
