package retriever

import (
	"context"

	"supportbot/internal/domain"
)

// DefaultK is the number of chunks returned when no k is configured.
const DefaultK = 3

// Searcher is the read side of a vector store.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) []domain.Chunk
}

// Retriever is a read-only view of a store that returns a fixed number of
// chunks per query.
type Retriever struct {
	searcher Searcher
	k        int
}

// New returns a retriever over searcher. A non-positive k means DefaultK.
func New(searcher Searcher, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{searcher: searcher, k: k}
}

// GetRelevant returns up to K chunks most similar to query.
func (r *Retriever) GetRelevant(ctx context.Context, query string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.searcher.SimilaritySearch(ctx, query, r.k), nil
}

// K returns the number of chunks requested per query.
func (r *Retriever) K() int {
	return r.k
}
