package index

import (
	"context"

	"paperdesk/internal/domain"
)

// Hit is one ranked match from a similarity query, ordered best first.
type Hit struct {
	Text string
	Page int
}

// Store is the contract to an external vector index. Embedding and the
// similarity search itself live behind this boundary; callers never compute
// similarity and must tolerate fewer than topK results.
type Store interface {
	CreateCollection(ctx context.Context, name string) error
	AddBatch(ctx context.Context, name string, chunks []domain.Chunk) error
	Query(ctx context.Context, name, text string, topK int) ([]Hit, error)
	// GetAll returns every chunk of the collection in stored order.
	GetAll(ctx context.Context, name string) ([]domain.Chunk, error)
	DeleteCollection(ctx context.Context, name string) error
}
