package port

import (
	"context"

	"supportbot/internal/domain"
)

// Retriever returns the chunks most relevant to a query. The number of
// results is fixed by the implementation.
type Retriever interface {
	GetRelevant(ctx context.Context, query string) ([]domain.Chunk, error)
}
