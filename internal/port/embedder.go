package port

import (
	"context"
	"errors"

	"supportbot/internal/domain"
)

// ErrMissingCredential is returned by provider constructors when no API key
// is configured. It is the only failure allowed to halt startup.
var ErrMissingCredential = errors.New("missing provider credential")

// Embedder is a raw embedding provider. A single call may fail as a whole.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// DocumentEmbedder never fails: a failed request degrades to zero vectors
// of the correct dimension.
type DocumentEmbedder interface {
	// EmbedDocuments returns exactly one vector per text, in input order.
	EmbedDocuments(ctx context.Context, texts []string) []domain.Embedding

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) domain.Embedding

	Dimension() int
	ModelName() string
}
