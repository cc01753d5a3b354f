// Package quality scores a document against a fixed rubric using the
// generation service. Scoring is advisory: every failure path degrades to a
// neutral default instead of blocking ingestion.
package quality

import (
	"context"
	"fmt"
	"math"
	"strings"

	"paperdesk/internal/domain"
)

const DefaultSampleSize = 6

const rubricTemplate = `Analyze this research paper's quality. Provide scores (0-100) for:

Paper Excerpts:
%s

Analyze and score:
1. **Methodology Rigor** (0-100): How well-designed is the research approach?
2. **Data Quality** (0-100): How robust is the data and analysis?
3. **Citation Quality** (0-100): How well does it reference prior work?
4. **Clarity** (0-100): How clear and well-written is it?

Format your response EXACTLY like this:
Methodology Rigor: [score]
Data Quality: [score]
Citation Quality: [score]
Clarity: [score]
Overall Assessment: [2-3 sentences]

Be strict but fair in scoring.`

type Analyzer struct {
	llm        domain.Generator
	sampleSize int
}

func NewAnalyzer(llm domain.Generator, sampleSize int) *Analyzer {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Analyzer{llm: llm, sampleSize: sampleSize}
}

// Analyze samples a document-order prefix of the chunks and asks for rubric
// scores. Never returns an error: a failed generation call or unparsable
// output yields the neutral default instead.
func (a *Analyzer) Analyze(ctx context.Context, chunks []domain.Chunk) domain.QualityScore {
	sample := chunks
	if len(sample) > a.sampleSize {
		sample = sample[:a.sampleSize]
	}
	texts := make([]string, len(sample))
	for i, ch := range sample {
		texts[i] = ch.Text
	}
	prompt := fmt.Sprintf(rubricTemplate, strings.Join(texts, "\n\n"))

	out, err := a.llm.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		return neutralScore()
	}

	r := parseRubric(out)
	overall := float64(r.Methodology+r.Data+r.Citation+r.Clarity) / 4
	return domain.QualityScore{
		Overall:     math.Round(overall*10) / 10,
		Methodology: r.Methodology,
		Data:        r.Data,
		Citation:    r.Citation,
		Clarity:     r.Clarity,
		Assessment:  r.Assessment,
		Defaulted:   r.Defaulted,
	}
}

func neutralScore() domain.QualityScore {
	return domain.QualityScore{
		Overall:     75.0,
		Methodology: 75,
		Data:        75,
		Citation:    75,
		Clarity:     75,
		Assessment:  "Quality analysis unavailable",
		Defaulted:   []string{"all"},
	}
}
