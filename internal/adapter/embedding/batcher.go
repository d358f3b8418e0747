package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"supportbot/internal/domain"
	"supportbot/internal/port"
)

// DefaultBatchSize keeps requests under upstream size limits.
const DefaultBatchSize = 20

// Batcher splits embedding work into fixed-size requests and never fails:
// a batch whose request fails is replaced by zero vectors.
type Batcher struct {
	embedder  port.Embedder
	batchSize int
	logger    *slog.Logger
	progress  func(done, total int)
}

// NewBatcher wraps embedder. batchSize <= 0 selects DefaultBatchSize.
func NewBatcher(embedder port.Embedder, batchSize int, logger *slog.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// OnProgress registers a callback invoked after every batch.
func (b *Batcher) OnProgress(fn func(done, total int)) {
	b.progress = fn
}

// EmbedDocuments returns exactly one vector per text, in input order.
// Vectors of failed batches are zero vectors of the dimension known after
// the last batch, so a provider that reports its size late still yields
// vectors of one shared length.
func (b *Batcher) EmbedDocuments(ctx context.Context, texts []string) []domain.Embedding {
	all := make([]domain.Embedding, 0, len(texts))

	for i := 0; i < len(texts); i += b.batchSize {
		end := i + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, ok := b.embedBatch(ctx, i/b.batchSize, texts[i:end])
		if !ok {
			vectors = make([]domain.Embedding, end-i)
		}
		all = append(all, vectors...)

		b.logger.Debug("embedded documents", "done", end, "total", len(texts))
		if b.progress != nil {
			b.progress(end, len(texts))
		}
	}

	dim := b.embedder.Dimension()
	for i, v := range all {
		if v == nil {
			all[i] = domain.Zero(dim)
		}
	}
	return all
}

// EmbedQuery embeds a single query string.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) domain.Embedding {
	vectors, ok := b.embedBatch(ctx, 0, []string{text})
	if !ok {
		return domain.Zero(b.embedder.Dimension())
	}
	return vectors[0]
}

// embedBatch reports false when the request or its response is unusable.
func (b *Batcher) embedBatch(ctx context.Context, batch int, texts []string) ([]domain.Embedding, bool) {
	vectors, err := b.embedder.Embed(ctx, texts)
	if err == nil {
		err = b.validate(vectors, len(texts))
	}
	if err != nil {
		b.logger.Warn("embedding batch failed, using zero vectors",
			"batch", batch,
			"size", len(texts),
			"model", b.embedder.ModelName(),
			"error", err,
		)
		return nil, false
	}

	out := make([]domain.Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = domain.Embedding(v)
	}
	return out, true
}

func (b *Batcher) validate(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("got %d vectors for %d texts", len(vectors), want)
	}
	dim := b.embedder.Dimension()
	for i, v := range vectors {
		if len(v) == 0 || (dim > 0 && len(v) != dim) {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}

func (b *Batcher) Dimension() int {
	return b.embedder.Dimension()
}

func (b *Batcher) ModelName() string {
	return b.embedder.ModelName()
}
