package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"supportbot/internal/adapter/retriever"
	"supportbot/internal/domain"
	"supportbot/internal/port"
)

var (
	ErrLengthMismatch    = errors.New("chunks and embeddings length mismatch")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyContent      = errors.New("chunk content is empty")
)

// VectorStore keeps chunks and their embeddings in two parallel slices and
// answers cosine-similarity queries by linear scan. It is not safe for
// concurrent use; callers serialize access.
type VectorStore struct {
	embedder   port.DocumentEmbedder
	path       string
	logger     *slog.Logger
	chunks     []domain.Chunk
	embeddings []domain.Embedding
	generation uint64
}

// New creates an empty store. Every successful AddDocuments persists the
// whole store to path; an empty path disables persistence.
func New(embedder port.DocumentEmbedder, path string, logger *slog.Logger) *VectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStore{
		embedder: embedder,
		path:     path,
		logger:   logger,
	}
}

// Load creates a store bound to embedder and fills it from the snapshot at
// path. A missing snapshot yields an empty store and no error. An unreadable
// snapshot also yields a usable empty store, together with an error wrapping
// ErrSnapshotCorrupt or ErrSchemaVersion for the caller to report.
func Load(path string, embedder port.DocumentEmbedder, logger *slog.Logger) (*VectorStore, error) {
	s := New(embedder, path, logger)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no existing vector store", "path", path)
		return s, nil
	}

	snap, err := readSnapshot(path)
	if err != nil {
		s.logger.Warn("ignoring unreadable vector store", "path", path, "error", err)
		return s, err
	}

	if len(snap.Chunks) > 0 {
		s.chunks = snap.Chunks
		s.embeddings = snap.Embeddings
	}
	s.logger.Info("vector store loaded", "path", path, "documents", len(s.chunks), "model", snap.Model)
	return s, nil
}

// AddDocuments embeds docs in one batched call, appends chunks and vectors,
// then persists the full store. Failed embedding batches contribute zero
// vectors rather than errors. An empty docs slice is a no-op.
func (s *VectorStore) AddDocuments(ctx context.Context, docs []domain.Chunk) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		if doc.Content == "" {
			return fmt.Errorf("document %d: %w", i, ErrEmptyContent)
		}
		texts[i] = doc.Content
	}

	vectors := s.embedder.EmbedDocuments(ctx, texts)
	if err := s.checkAppend(docs, vectors); err != nil {
		return err
	}

	s.chunks = append(s.chunks, docs...)
	s.embeddings = append(s.embeddings, vectors...)
	s.generation++

	s.logger.Info("added documents to vector store", "added", len(docs), "total", len(s.chunks))

	if s.path == "" {
		return nil
	}
	if err := s.Save(s.path); err != nil {
		return fmt.Errorf("failed to persist vector store: %w", err)
	}
	return nil
}

// checkAppend enforces the parallel-slice and shared-dimension invariants.
func (s *VectorStore) checkAppend(docs []domain.Chunk, vectors []domain.Embedding) error {
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: %d documents, %d embeddings", ErrLengthMismatch, len(docs), len(vectors))
	}
	if len(s.chunks) != len(s.embeddings) {
		return fmt.Errorf("%w: store holds %d chunks and %d embeddings", ErrLengthMismatch, len(s.chunks), len(s.embeddings))
	}

	dim := s.Dimension()
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// SimilaritySearch returns up to k chunks ordered from most to least similar
// to query. Ties keep insertion order.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) []domain.Chunk {
	scored := s.Search(ctx, query, k)
	out := make([]domain.Chunk, len(scored))
	for i, sc := range scored {
		out[i] = sc.Chunk
	}
	return out
}

// Search is SimilaritySearch with scores and positions.
func (s *VectorStore) Search(ctx context.Context, query string, k int) []domain.ScoredChunk {
	if k <= 0 || len(s.chunks) == 0 {
		return []domain.ScoredChunk{}
	}
	return s.SearchVector(s.embedder.EmbedQuery(ctx, query), k)
}

// SearchVector ranks stored chunks against an already embedded query.
func (s *VectorStore) SearchVector(query domain.Embedding, k int) []domain.ScoredChunk {
	if k <= 0 || len(s.chunks) == 0 {
		return []domain.ScoredChunk{}
	}

	queryNorm := query.Norm()
	scored := make([]domain.ScoredChunk, len(s.embeddings))
	for i, e := range s.embeddings {
		scored[i] = domain.ScoredChunk{
			Chunk:    s.chunks[i],
			Score:    cosineSimilarity(query, e, queryNorm),
			Position: i,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// cosineSimilarity returns 0 instead of NaN when either vector has zero norm
// or the dimensions differ.
func cosineSimilarity(q, e domain.Embedding, qNorm float64) float64 {
	if len(q) != len(e) || qNorm == 0 {
		return 0
	}

	var dot, norm float64
	for i := range q {
		dot += float64(q[i]) * float64(e[i])
		norm += float64(e[i]) * float64(e[i])
	}
	if norm == 0 {
		return 0
	}

	sim := dot / (qNorm * math.Sqrt(norm))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// Save writes the whole store to path, replacing any existing snapshot.
func (s *VectorStore) Save(path string) error {
	snap := &snapshot{
		Model:      s.embedder.ModelName(),
		Dimension:  s.Dimension(),
		Chunks:     s.chunks,
		Embeddings: s.embeddings,
	}
	if err := writeSnapshot(path, snap); err != nil {
		return err
	}
	s.logger.Debug("vector store saved", "path", path, "documents", len(s.chunks))
	return nil
}

// AsRetriever returns a read-only facade returning k results per query.
func (s *VectorStore) AsRetriever(k int) *retriever.Retriever {
	return retriever.New(s, k)
}

// Len returns the number of stored chunks.
func (s *VectorStore) Len() int {
	return len(s.chunks)
}

// Dimension returns the shared embedding dimension, or 0 for an empty store.
func (s *VectorStore) Dimension() int {
	if len(s.embeddings) == 0 {
		return 0
	}
	return len(s.embeddings[0])
}

// Generation changes every time documents are added.
func (s *VectorStore) Generation() uint64 {
	return s.generation
}

// Chunks returns a copy of the stored chunks in insertion order.
func (s *VectorStore) Chunks() []domain.Chunk {
	return append([]domain.Chunk(nil), s.chunks...)
}

// Embeddings returns a copy of the stored vectors in insertion order.
func (s *VectorStore) Embeddings() []domain.Embedding {
	return append([]domain.Embedding(nil), s.embeddings...)
}

// Path returns the snapshot location used by AddDocuments.
func (s *VectorStore) Path() string {
	return s.path
}

// ModelName returns the name of the bound embedding model.
func (s *VectorStore) ModelName() string {
	return s.embedder.ModelName()
}
