package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"supportbot/internal/adapter/dataset"
	"supportbot/internal/adapter/store"
	"supportbot/internal/port"
)

// IndexUseCase builds or loads the vector store.
type IndexUseCase struct {
	embedder      port.DocumentEmbedder
	snapshotPath  string
	processedPath string
	preparer      *PrepareUseCase
	logger        *slog.Logger
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(embedder port.DocumentEmbedder, snapshotPath, processedPath string, logger *slog.Logger) *IndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		embedder:      embedder,
		snapshotPath:  snapshotPath,
		processedPath: processedPath,
		logger:        logger,
	}
}

// WithPreparer makes BuildStore produce the processed-data file with p when
// it is missing, so a first run starts from raw or built-in data.
func (u *IndexUseCase) WithPreparer(p *PrepareUseCase) *IndexUseCase {
	u.preparer = p
	return u
}

// IndexResult contains the results of an index operation.
type IndexResult struct {
	Loaded    bool   // store came from an existing snapshot
	Rebuilt   bool   // an existing snapshot was replaced
	Reason    string // why a rebuild happened
	Prepared  string // origin of freshly prepared data, if any
	Documents int
}

// BuildStore returns the store from the snapshot when one exists and was
// built with the current embedding model. Otherwise it embeds the
// processed-data file into a new store, which persists itself. A missing
// processed file is prepared first when a preparer is set and yields an
// empty store otherwise. force skips the snapshot.
func (u *IndexUseCase) BuildStore(ctx context.Context, force bool) (*store.VectorStore, *IndexResult, error) {
	result := &IndexResult{}

	check, err := store.CheckSnapshot(u.snapshotPath, u.embedder.ModelName())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to inspect snapshot: %w", err)
	}

	switch {
	case force && check.Exists:
		result.Rebuilt = true
		result.Reason = "forced"
	case check.NeedsRebuild:
		result.Rebuilt = true
		result.Reason = check.Reason
	case check.Exists:
		s, err := store.Load(u.snapshotPath, u.embedder, u.logger)
		if err == nil {
			result.Loaded = true
			result.Documents = s.Len()
			return s, result, nil
		}
		result.Rebuilt = true
		result.Reason = err.Error()
	}

	if result.Rebuilt {
		u.logger.Warn("rebuilding vector store", "path", u.snapshotPath, "reason", result.Reason)
	}

	s := store.New(u.embedder, u.snapshotPath, u.logger)

	chunks, err := dataset.ReadProcessed(u.processedPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && u.preparer != nil:
		u.logger.Info("processed data not found, preparing it", "path", u.processedPath)
		prepared, err := u.preparer.Prepare()
		if err != nil {
			return nil, nil, err
		}
		chunks = prepared.Chunks
		result.Prepared = prepared.Origin
	case errors.Is(err, os.ErrNotExist):
		u.logger.Warn("processed data not found, starting with an empty store", "path", u.processedPath)
		return s, result, nil
	case err != nil:
		return nil, nil, err
	}

	if err := s.AddDocuments(ctx, chunks); err != nil {
		return nil, nil, fmt.Errorf("failed to add documents: %w", err)
	}

	result.Documents = s.Len()
	return s, result, nil
}
