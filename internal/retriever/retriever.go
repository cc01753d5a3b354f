// Package retriever converts the index adapter's rank-ordered matches into
// scored retrieval results.
package retriever

import (
	"context"
	"fmt"

	"paperdesk/internal/domain"
	"paperdesk/internal/index"
)

// scoreDecay is the per-rank relevance falloff. The resulting score is a
// heuristic proxy for relevance, not a calibrated probability: past rank 12
// it goes negative and is reported as-is. Nothing downstream consumes it
// numerically; the confidence computation looks only at the generated text.
const scoreDecay = 0.08

const DefaultTopK = 8

type Retriever struct {
	store index.Store
	topK  int
}

func New(store index.Store, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve runs a similarity query and attaches linearly decaying relevance
// scores. The adapter may return fewer than topK results. Never retried here;
// the caller owns retry policy.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string) ([]domain.RetrievalResult, error) {
	hits, err := r.store.Query(ctx, collection, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", domain.ErrRetrieval, collection, err)
	}
	results := make([]domain.RetrievalResult, len(hits))
	for i, h := range hits {
		results[i] = domain.RetrievalResult{
			Chunk: domain.Chunk{Text: h.Text, Page: h.Page},
			Rank:  i,
			Score: 1.0 - float64(i)*scoreDecay,
		}
	}
	return results, nil
}
