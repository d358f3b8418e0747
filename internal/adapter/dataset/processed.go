package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"supportbot/internal/domain"
)

// WriteProcessed stores chunks as an indented JSON array of
// {content, metadata} records.
func WriteProcessed(path string, chunks []domain.Chunk) error {
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode processed data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write processed data: %w", err)
	}
	return nil
}

// ReadProcessed loads chunks written by WriteProcessed. A missing file is
// reported with an error wrapping os.ErrNotExist.
func ReadProcessed(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed data: %w", err)
	}

	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode processed data %s: %w", path, err)
	}
	return chunks, nil
}
