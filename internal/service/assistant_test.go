package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperdesk/internal/domain"
	"paperdesk/internal/index"
)

type fakeStore struct {
	collections map[string][]domain.Chunk
	batches     []int
	queries     int
	deleted     []string
	addErr      error
	queryErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string][]domain.Chunk{}}
}

func (f *fakeStore) CreateCollection(_ context.Context, name string) error {
	f.collections[name] = nil
	return nil
}

func (f *fakeStore) AddBatch(_ context.Context, name string, chunks []domain.Chunk) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.batches = append(f.batches, len(chunks))
	f.collections[name] = append(f.collections[name], chunks...)
	return nil
}

func (f *fakeStore) Query(_ context.Context, name, _ string, topK int) ([]index.Hit, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	chunks := f.collections[name]
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	hits := make([]index.Hit, len(chunks))
	for i, ch := range chunks {
		hits[i] = index.Hit{Text: ch.Text, Page: ch.Page}
	}
	return hits, nil
}

func (f *fakeStore) GetAll(_ context.Context, name string) ([]domain.Chunk, error) {
	chunks, ok := f.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	return chunks, nil
}

func (f *fakeStore) DeleteCollection(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	delete(f.collections, name)
	return nil
}

// fakeLLM answers rubric prompts with fixed scores and everything else with
// a cited answer.
type fakeLLM struct {
	err   error
	calls int
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "Methodology Rigor") {
		return "Methodology Rigor: 80\nData Quality: 80\nCitation Quality: 80\nClarity: 80\nOverall Assessment: Fine.", nil
	}
	return "The answer is grounded [Page 1]. More detail follows [Page 2].", nil
}

type stubChunker struct{}

func (stubChunker) Chunk(pageText string, page int) []domain.Chunk {
	text := strings.TrimSpace(pageText)
	if len(text) < 50 {
		return nil
	}
	return []domain.Chunk{{ID: fmt.Sprintf("p%d", page), Page: page, Text: text}}
}

func pageOfLength(n, number int) domain.PageText {
	return domain.PageText{Number: number, Text: strings.Repeat("lorem ipsum dolor sit amet ", n)}
}

func newAssistant(store index.Store, llm domain.Generator) *Assistant {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, stubChunker{}, llm, logger, Options{BatchSize: 2})
}

func TestIngest(t *testing.T) {
	store := newFakeStore()
	a := newAssistant(store, &fakeLLM{})

	pages := []domain.PageText{pageOfLength(5, 1), pageOfLength(5, 2), pageOfLength(5, 3)}
	res, err := a.Ingest(context.Background(), "paper.pdf", pages, Metadata{Title: "T", Author: "A", PageCount: 3})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.DocumentID, "doc_"))
	assert.Equal(t, 3, res.ChunkCount)
	assert.InDelta(t, 80.0, res.Quality.Overall, 1e-9)

	// 3 chunks with batch size 2 -> batches of 2 and 1
	assert.Equal(t, []int{2, 1}, store.batches)

	list := a.List()
	require.Len(t, list, 1)
	assert.Equal(t, "paper.pdf", list[0].Document.Filename)
	assert.Equal(t, 3, list[0].Document.ChunkCount)
}

func TestIngest_NoChunks(t *testing.T) {
	a := newAssistant(newFakeStore(), &fakeLLM{})
	_, err := a.Ingest(context.Background(), "blank.pdf", []domain.PageText{{Number: 1, Text: "tiny"}}, Metadata{})
	assert.ErrorIs(t, err, domain.ErrNoChunks)
	assert.Empty(t, a.List())
}

func TestIngest_BatchFailureTearsDown(t *testing.T) {
	store := newFakeStore()
	store.addErr = errors.New("disk full")
	a := newAssistant(store, &fakeLLM{})

	_, err := a.Ingest(context.Background(), "paper.pdf", []domain.PageText{pageOfLength(5, 1)}, Metadata{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoChunks)
	require.Len(t, store.deleted, 1)
	assert.Empty(t, a.List())
}

func TestIngest_QualityFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore()
	a := newAssistant(store, &fakeLLM{err: errors.New("model offline")})

	res, err := a.Ingest(context.Background(), "paper.pdf", []domain.PageText{pageOfLength(5, 1)}, Metadata{})
	require.NoError(t, err)
	assert.InDelta(t, 75.0, res.Quality.Overall, 1e-9)
	assert.Equal(t, "Quality analysis unavailable", res.Quality.Assessment)
}

func ingestOne(t *testing.T, a *Assistant, pages int) string {
	t.Helper()
	pp := make([]domain.PageText, pages)
	for i := range pp {
		pp[i] = pageOfLength(5, i+1)
	}
	res, err := a.Ingest(context.Background(), "paper.pdf", pp, Metadata{PageCount: pages})
	require.NoError(t, err)
	return res.DocumentID
}

func TestQuery(t *testing.T) {
	store := newFakeStore()
	a := newAssistant(store, &fakeLLM{})
	id := ingestOne(t, a, 3)

	ans, err := a.Query(context.Background(), id, "What does the paper conclude?")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ans.CitedPages)
	assert.GreaterOrEqual(t, ans.Confidence, 0.3)
	assert.Equal(t, 1, store.queries)
}

func TestQuery_TooShortRejectedBeforeRetrieval(t *testing.T) {
	store := newFakeStore()
	a := newAssistant(store, &fakeLLM{})
	id := ingestOne(t, a, 1)

	_, err := a.Query(context.Background(), id, "why?")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, store.queries, "no retrieval call may happen for an invalid question")
}

func TestQuery_UnknownDocument(t *testing.T) {
	a := newAssistant(newFakeStore(), &fakeLLM{})
	_, err := a.Query(context.Background(), "doc_nope", "a perfectly valid question")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuery_RetrievalFailure(t *testing.T) {
	store := newFakeStore()
	a := newAssistant(store, &fakeLLM{})
	id := ingestOne(t, a, 1)
	store.queryErr = errors.New("index down")

	_, err := a.Query(context.Background(), id, "a perfectly valid question")
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestSummarize(t *testing.T) {
	a := newAssistant(newFakeStore(), &fakeLLM{})
	id := ingestOne(t, a, 3)

	ans, err := a.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, ans.ChunksUsed)
}

func TestSummarize_GenerationFailureLeavesRegistryIntact(t *testing.T) {
	store := newFakeStore()
	llm := &fakeLLM{}
	a := newAssistant(store, llm)
	id := ingestOne(t, a, 2)

	llm.err = errors.New("model offline")
	_, err := a.Summarize(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrGeneration)

	// the failure is terminal for the request only; the document survives
	list := a.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].Document.ID)
}

func TestDelete(t *testing.T) {
	store := newFakeStore()
	a := newAssistant(store, &fakeLLM{})
	id := ingestOne(t, a, 1)

	require.NoError(t, a.Delete(context.Background(), id))
	assert.Contains(t, store.deleted, id)
	assert.Empty(t, a.List())

	err := a.Delete(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompare_EndToEnd(t *testing.T) {
	a := newAssistant(newFakeStore(), &fakeLLM{})
	first := ingestOne(t, a, 1)
	second := ingestOne(t, a, 1)

	res, err := a.Compare(context.Background(), []string{first, second}, "")
	require.NoError(t, err)
	require.Len(t, res.Similarity, 2)
	// equal quality scores -> off-diagonal similarity is exactly 100
	assert.InDelta(t, 100, res.Similarity[0][1], 1e-9)
	assert.InDelta(t, 100, res.Similarity[0][0], 1e-9)
}

func TestSummarySample(t *testing.T) {
	chunks := func(n int) []domain.Chunk {
		out := make([]domain.Chunk, n)
		for i := range out {
			out[i] = domain.Chunk{ID: fmt.Sprintf("c%d", i)}
		}
		return out
	}

	t.Run("small document returns all", func(t *testing.T) {
		assert.Len(t, summarySample(chunks(7), 10), 7)
	})

	t.Run("large document includes last chunk", func(t *testing.T) {
		sample := summarySample(chunks(45), 10)
		require.Len(t, sample, 10)
		assert.Equal(t, "c0", sample[0].ID)
		assert.Equal(t, "c44", sample[len(sample)-1].ID)
	})
}
