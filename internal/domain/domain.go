package domain

import (
	"context"
	"time"
)

// Document is the registry record for one ingested source. It is immutable
// once created; its id doubles as the index collection name.
type Document struct {
	ID         string
	Filename   string
	Title      string
	Author     string
	PageCount  int
	ChunkCount int
	UploadedAt time.Time
}

// PageText is the raw extracted text of one page, before chunking.
type PageText struct {
	Number int
	Text   string
}

// Chunk is a bounded, page-tagged span of document text used as the unit of
// retrieval. Chunks are never mutated after creation.
type Chunk struct {
	ID   string
	Page int
	Text string
}

// RetrievalResult is a chunk returned for a query, with its rank and a
// heuristic relevance score. Rank 0 carries the highest score.
type RetrievalResult struct {
	Chunk Chunk
	Rank  int
	Score float64
}

// AnswerStats carries the counts behind a grounded answer's confidence.
type AnswerStats struct {
	WordCount       int
	SentenceCount   int
	CitationCount   int
	UniqueCitations int
	CitationDensity float64
	// InvalidCitations lists cited pages that do not appear in the chunks
	// supplied to the generator. Such a citation is a model error, not a
	// new source.
	InvalidCitations []int
}

// GroundedAnswer is generated text whose claims carry [Page N] citations
// traceable to the supplied chunks. Confidence is bounded to [0.3, 1.0].
type GroundedAnswer struct {
	Text       string
	CitedPages []int
	ChunksUsed int
	Confidence float64
	Stats      AnswerStats
}

// QualityScore is a rubric assessment of one document. Sub-scores are in
// [0,100]; Overall is their arithmetic mean and is always defined, even when
// the rubric output could not be parsed.
type QualityScore struct {
	Overall     float64
	Methodology int
	Data        int
	Citation    int
	Clarity     int
	Assessment  string
	// Defaulted names the rubric fields that fell back to defaults because
	// the model output was missing or malformed.
	Defaulted []string
}

// DocumentSummary is the per-document block inside a comparison.
type DocumentSummary struct {
	DocumentID string
	Filename   string
	Author     string
	PageCount  int
	Summary    string
	Quality    float64
}

// ComparisonResult is the outcome of comparing N documents. The similarity
// matrix is square and symmetric with a diagonal of 100. Off-diagonal values
// derive from quality-score proximity, not semantic similarity; the name
// overstates what the metric measures and callers should treat it as a rough
// ordering aid only.
type ComparisonResult struct {
	Documents  []DocumentSummary
	Analysis   string
	Similarity [][]float64
	Type       string
}

// Chunker splits raw page text into retrievable chunks. Pages below the
// minimum length yield no chunks; that is not an error.
type Chunker interface {
	Chunk(pageText string, page int) []Chunk
}

// Generator is a single-turn text-generation service. Failures surface as
// opaque errors; the core never retries.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
