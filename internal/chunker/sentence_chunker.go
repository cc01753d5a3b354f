package chunker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"paperdesk/internal/domain"
)

// DefaultMaxWords is the word budget of one chunk.
const DefaultMaxWords = 500

// DefaultMinChars is the minimum trimmed length below which a page yields no
// chunks and an assembled chunk is discarded.
const DefaultMinChars = 50

// SentenceChunker splits page text into word-bounded chunks on sentence
// boundaries, carrying a two-sentence overlap across chunk breaks so the
// generator keeps local context at the seams.
type SentenceChunker struct {
	maxWords int
	minChars int
	space    *regexp.Regexp
}

func New(maxWords, minChars int) *SentenceChunker {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &SentenceChunker{
		maxWords: maxWords,
		minChars: minChars,
		space:    regexp.MustCompile(`\s+`),
	}
}

// Chunk splits one page of text into chunks tagged with the page number.
// Pages shorter than the minimum threshold yield nothing. A single sentence
// longer than the word budget still forms its own chunk; splitting is
// sentence-bounded, never mid-sentence.
func (c *SentenceChunker) Chunk(pageText string, page int) []domain.Chunk {
	if len(strings.TrimSpace(pageText)) < c.minChars {
		return nil
	}
	text := c.space.ReplaceAllString(strings.TrimSpace(pageText), " ")
	sentences := splitSentences(text)

	var chunks []domain.Chunk
	var current []string
	length := 0
	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if length+words > c.maxWords && len(current) > 0 {
			chunks = c.emit(chunks, current, page)
			overlap := current
			if len(current) >= 3 {
				overlap = current[len(current)-2:]
			}
			current = append(append([]string(nil), overlap...), sentence)
			length = 0
			for _, s := range current {
				length += len(strings.Fields(s))
			}
			continue
		}
		current = append(current, sentence)
		length += words
	}
	return c.emit(chunks, current, page)
}

func (c *SentenceChunker) emit(chunks []domain.Chunk, sentences []string, page int) []domain.Chunk {
	text := strings.TrimSpace(strings.Join(sentences, " "))
	if len(text) < c.minChars {
		return chunks
	}
	return append(chunks, domain.Chunk{
		ID:   uuid.New().String(),
		Page: page,
		Text: text,
	})
}

// splitSentences splits on '.', '!' or '?' followed by whitespace, keeping
// the terminator with its sentence. Abbreviations like "e.g.x" without a
// trailing space stay intact. Input is whitespace-normalized.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && text[i+1] != ' ' {
				continue
			}
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
