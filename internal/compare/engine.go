// Package compare summarizes and cross-analyzes multiple documents.
package compare

import (
	"context"
	"fmt"
	"math"
	"strings"

	"paperdesk/internal/answer"
	"paperdesk/internal/domain"
	"paperdesk/internal/index"
	"paperdesk/internal/registry"
)

const (
	DefaultMaxDocuments = 5
	DefaultSampleSize   = 8
)

const comparisonInstructions = `

Provide a detailed comparison with these sections:

**1. Research Objectives Comparison**
Compare what each paper aims to achieve. Are they addressing similar or different problems?

**2. Methodology Comparison**
Compare research methods, approaches, and techniques used.

**3. Key Findings Agreement/Disagreement**
Which findings align? Which contradict? Be specific.

**4. Strengths and Weaknesses**
For each paper, note unique strengths and limitations.

**5. Research Gap Analysis**
What gaps exist? What questions remain unanswered?

**6. Recommendation**
Which paper is most valuable for different use cases?

Be thorough, specific, and cite paper numbers [Paper 1], [Paper 2], etc.`

type Engine struct {
	reg          *registry.Registry
	store        index.Store
	generator    *answer.Generator
	llm          domain.Generator
	maxDocuments int
	sampleSize   int
}

func NewEngine(reg *registry.Registry, store index.Store, gen *answer.Generator, llm domain.Generator, maxDocuments, sampleSize int) *Engine {
	if maxDocuments <= 0 {
		maxDocuments = DefaultMaxDocuments
	}
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Engine{
		reg:          reg,
		store:        store,
		generator:    gen,
		llm:          llm,
		maxDocuments: maxDocuments,
		sampleSize:   sampleSize,
	}
}

// Compare summarizes each document from a stride sample of its chunks, asks
// the model for a cross-document analysis, and derives the similarity
// matrix. All ids are validated before any external call.
func (e *Engine) Compare(ctx context.Context, ids []string, comparisonType string) (*domain.ComparisonResult, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 documents to compare, got %d", domain.ErrInvalidInput, len(ids))
	}
	if len(ids) > e.maxDocuments {
		return nil, fmt.Errorf("%w: at most %d documents can be compared, got %d", domain.ErrInvalidInput, e.maxDocuments, len(ids))
	}
	entries := make([]*registry.Entry, len(ids))
	for i, id := range ids {
		entry, ok := e.reg.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		entries[i] = entry
	}
	if comparisonType == "" {
		comparisonType = "comprehensive"
	}

	summaries := make([]domain.DocumentSummary, len(entries))
	for i, entry := range entries {
		chunks, err := e.store.GetAll(ctx, entry.Document.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: collection %s: %v", domain.ErrRetrieval, entry.Document.ID, err)
		}
		sample := strideSample(chunks, e.sampleSize)
		ans, err := e.generator.Generate(ctx, sample, "")
		if err != nil {
			return nil, fmt.Errorf("summarize %s for comparison: %w", entry.Document.ID, err)
		}
		summaries[i] = domain.DocumentSummary{
			DocumentID: entry.Document.ID,
			Filename:   entry.Document.Filename,
			Author:     entry.Document.Author,
			PageCount:  entry.Document.PageCount,
			Summary:    ans.Text,
			Quality:    entry.Quality.Overall,
		}
	}

	analysis, err := e.llm.Generate(ctx, buildComparisonPrompt(summaries))
	if err != nil {
		return nil, fmt.Errorf("%w: comparison: %v", domain.ErrGeneration, err)
	}
	if strings.TrimSpace(analysis) == "" {
		return nil, fmt.Errorf("%w: comparison returned empty output", domain.ErrGeneration)
	}

	return &domain.ComparisonResult{
		Documents:  summaries,
		Analysis:   analysis,
		Similarity: similarityMatrix(summaries),
		Type:       comparisonType,
	}, nil
}

// strideSample picks an evenly spaced subset preserving document order:
// step = max(1, total/size), indices 0, step, 2*step, ...
func strideSample(chunks []domain.Chunk, size int) []domain.Chunk {
	if len(chunks) <= size {
		return chunks
	}
	step := len(chunks) / size
	out := make([]domain.Chunk, 0, size)
	for i := 0; i < size; i++ {
		idx := i * step
		if idx >= len(chunks) {
			break
		}
		out = append(out, chunks[idx])
	}
	return out
}

func buildComparisonPrompt(summaries []domain.DocumentSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are comparing %d research papers. Analyze and compare them.\n\n", len(summaries))
	for i, s := range summaries {
		fmt.Fprintf(&b, `
**Paper %d: %s**
Author: %s
Pages: %d
Quality Score: %.1f/100

Summary:
%s

---
`, i+1, s.Filename, s.Author, s.PageCount, s.Quality, s.Summary)
	}
	b.WriteString(comparisonInstructions)
	return b.String()
}

// similarityMatrix derives pairwise similarity from quality-score proximity:
// 100 on the diagonal, 100-|q_i - q_j| elsewhere. Symmetric and bounded to
// [0,100] by construction, but it measures score proximity, not topical
// similarity; a known limitation carried deliberately.
func similarityMatrix(summaries []domain.DocumentSummary) [][]float64 {
	n := len(summaries)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			if i == j {
				matrix[i][j] = 100
				continue
			}
			sim := 100 - math.Abs(summaries[i].Quality-summaries[j].Quality)
			matrix[i][j] = math.Round(sim*10) / 10
		}
	}
	return matrix
}
