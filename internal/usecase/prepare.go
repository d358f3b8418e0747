package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"supportbot/internal/adapter/chunker"
	"supportbot/internal/adapter/dataset"
	"supportbot/internal/domain"
)

// Document types recorded in chunk metadata.
const (
	TypeHeadings  = "headings"
	TypeParagraph = "paragraph"
)

// PrepareUseCase turns raw company content into the processed-data file.
type PrepareUseCase struct {
	loader   *dataset.Loader
	splitter *chunker.TextSplitter
	output   string
	logger   *slog.Logger
}

// NewPrepareUseCase creates a new prepare use case.
func NewPrepareUseCase(loader *dataset.Loader, splitter *chunker.TextSplitter, output string, logger *slog.Logger) *PrepareUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrepareUseCase{
		loader:   loader,
		splitter: splitter,
		output:   output,
		logger:   logger,
	}
}

// PrepareResult contains the results of a prepare operation.
type PrepareResult struct {
	Origin     string
	Sections   int
	Documents  int
	Chunks     []domain.Chunk
	OutputFile string
}

// Prepare loads raw sections, builds documents, splits them and writes the
// processed-data file.
func (u *PrepareUseCase) Prepare() (*PrepareResult, error) {
	sections, origin, err := u.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load raw data: %w", err)
	}

	docs := BuildDocuments(sections)
	chunks := u.splitter.SplitChunks(docs)

	if err := dataset.WriteProcessed(u.output, chunks); err != nil {
		return nil, err
	}

	u.logger.Info("processed data written",
		"origin", origin,
		"sections", len(sections),
		"documents", len(docs),
		"chunks", len(chunks),
		"path", u.output)

	return &PrepareResult{
		Origin:     origin,
		Sections:   len(sections),
		Documents:  len(docs),
		Chunks:     chunks,
		OutputFile: u.output,
	}, nil
}

// BuildDocuments creates one headings document per section (when it has
// headings) followed by one document per non-empty paragraph.
func BuildDocuments(sections []domain.RawSection) []domain.Chunk {
	var docs []domain.Chunk
	for _, s := range sections {
		if headings := strings.Join(s.Headings, " "); headings != "" {
			docs = append(docs, domain.Chunk{
				Content: headings,
				Metadata: domain.Metadata{
					domain.MetaSource:  s.Source(),
					domain.MetaSection: s.Name,
					domain.MetaType:    TypeHeadings,
				},
			})
		}

		for i, p := range s.Paragraphs {
			if p == "" {
				continue
			}
			docs = append(docs, domain.Chunk{
				Content: p,
				Metadata: domain.Metadata{
					domain.MetaSource:  s.Source(),
					domain.MetaSection: s.Name,
					domain.MetaType:    TypeParagraph,
					domain.MetaIndex:   i,
				},
			})
		}
	}
	return docs
}
