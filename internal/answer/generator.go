// Package answer builds citation-instructed prompts from retrieved chunks,
// invokes the generation service, and validates the citations in its output.
package answer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"paperdesk/internal/domain"
)

const queryTemplate = `You are a research assistant. Answer the question based on the provided excerpts.

Question: %s

Excerpts:
%s

Instructions:
1. Answer clearly and directly
2. Use ONLY information from excerpts
3. Cite pages using [Page X] format after EVERY claim
4. If answer not in excerpts, state so clearly

Answer:`

const summaryTemplate = `Create a comprehensive summary with these sections:

Excerpts:
%s

**Main Objective**
[Cite pages]

**Methodology**
[Cite pages]

**Key Findings**
[Cite pages]

**Conclusion**
[Cite pages]

Important: Cite [Page X] after EACH claim.

Summary:`

// Generator produces grounded answers and summaries from chunks.
type Generator struct {
	llm domain.Generator
}

func NewGenerator(llm domain.Generator) *Generator {
	return &Generator{llm: llm}
}

// Generate answers the query from the supplied chunks, or produces a
// four-section summary when query is empty. Chunks are presented to the
// model in the order given (retrieval rank order, or document order for
// summaries). A failed or empty model response is terminal for the request.
func (g *Generator) Generate(ctx context.Context, chunks []domain.Chunk, query string) (*domain.GroundedAnswer, error) {
	prompt := BuildPrompt(chunks, query)
	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: model returned empty output", domain.ErrGeneration)
	}
	return Score(text, chunks), nil
}

// BuildPrompt assembles the page-tagged context block and wraps it in the
// query or summary template.
func BuildPrompt(chunks []domain.Chunk, query string) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]: %s", ch.Page, ch.Text)
	}
	if query != "" {
		return fmt.Sprintf(queryTemplate, query, b.String())
	}
	return fmt.Sprintf(summaryTemplate, b.String())
}

// Score derives the grounded answer and its confidence from raw model text.
//
// Weighting: citation density 0.5 (evidence grounding matters most), page
// coverage 0.3, length appropriateness 0.2. The result is clamped to
// [0.3, 1.0]; even citation-free output keeps the floor.
func Score(text string, chunks []domain.Chunk) *domain.GroundedAnswer {
	citations := ExtractCitations(text)
	unique := UniquePages(citations)

	sentences := 0
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := len(strings.Fields(text))

	density := 0.0
	if sentences > 0 {
		density = float64(len(citations)) / float64(sentences)
	}
	densityScore := math.Min(1, density/0.4)
	coverageScore := math.Min(1, float64(len(unique))/4)
	lengthScore := 0.7
	if words > 80 && words < 800 {
		lengthScore = 1.0
	}
	confidence := densityScore*0.5 + coverageScore*0.3 + lengthScore*0.2
	confidence = math.Max(0.3, math.Min(1.0, confidence))

	supplied := map[int]struct{}{}
	for _, ch := range chunks {
		supplied[ch.Page] = struct{}{}
	}
	var invalid []int
	for _, p := range unique {
		if _, ok := supplied[p]; !ok {
			invalid = append(invalid, p)
		}
	}

	return &domain.GroundedAnswer{
		Text:       text,
		CitedPages: unique,
		ChunksUsed: len(chunks),
		Confidence: math.Round(confidence*100) / 100,
		Stats: domain.AnswerStats{
			WordCount:        words,
			SentenceCount:    sentences,
			CitationCount:    len(citations),
			UniqueCitations:  len(unique),
			CitationDensity:  math.Round(density*100) / 100,
			InvalidCitations: invalid,
		},
	}
}
