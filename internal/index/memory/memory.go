// Package memory is an in-process index adapter. It keeps whole collections
// in memory and embeds internally with TF-IDF over the collection, so the
// rest of the pipeline sees the same contract as a remote vector store.
// Used by tests and by single-document interactive mode.
package memory

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"paperdesk/internal/domain"
	"paperdesk/internal/index"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string][]domain.Chunk

	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func New() *Store {
	return &Store{
		collections:  map[string][]domain.Chunk{},
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// CreateCollection resets any existing collection of the same name, matching
// the delete-then-create behaviour expected of the remote adapter.
func (s *Store) CreateCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = nil
	return nil
}

func (s *Store) AddBatch(_ context.Context, name string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %s does not exist", name)
	}
	s.collections[name] = append(existing, chunks...)
	return nil
}

// Query ranks the collection's chunks against the query text by TF-IDF
// cosine similarity, recomputed over the collection per call. Fine for the
// collection sizes a single document produces.
func (s *Store) Query(_ context.Context, name, text string, topK int) ([]index.Hit, error) {
	if topK <= 0 {
		topK = 8
	}
	s.mu.RLock()
	chunks, ok := s.collections[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	idf, vocab := s.fit(chunks)
	queryVec := s.vectorize(text, vocab, idf)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(chunks))
	for i, ch := range chunks {
		vec := s.vectorize(ch.Text, vocab, idf)
		scores[i] = scored{i, dot(queryVec, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	hits := make([]index.Hit, 0, topK)
	for i := 0; i < topK; i++ {
		ch := chunks[scores[i].idx]
		hits = append(hits, index.Hit{Text: ch.Text, Page: ch.Page})
	}
	return hits, nil
}

func (s *Store) GetAll(_ context.Context, name string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// fit builds a vocabulary and smoothed IDF values over the collection.
func (s *Store) fit(chunks []domain.Chunk) ([]float64, map[string]int) {
	df := map[string]int{}
	for _, ch := range chunks {
		seen := map[string]struct{}{}
		for _, tok := range s.tokenize(ch.Text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(chunks))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	return idf, vocab
}

// vectorize computes an L2-normalized TF-IDF vector.
func (s *Store) vectorize(text string, vocab map[string]int, idf []float64) []float64 {
	vec := make([]float64, len(vocab))
	tf := map[int]int{}
	total := 0
	for _, tok := range s.tokenize(text) {
		if idx, ok := vocab[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (s *Store) tokenize(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := s.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of", "in",
		"on", "at", "by", "with", "as", "is", "are", "was", "were", "be",
		"been", "it", "this", "that", "these", "those", "from", "into",
		"about", "through", "can", "will", "not",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
