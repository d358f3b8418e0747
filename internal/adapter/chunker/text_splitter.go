package chunker

import (
	"supportbot/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	// boundaryWindow is how far back from a window end a sentence or line
	// boundary is searched for.
	boundaryWindow = 100
)

// TextSplitter cuts text into windows of at most Size characters that
// overlap by Overlap characters, preferring to end on a sentence boundary.
type TextSplitter struct {
	size    int
	overlap int
}

func NewTextSplitter(size, overlap int) *TextSplitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &TextSplitter{size: size, overlap: overlap}
}

func isBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// Split returns the windows of text. Empty text yields none and text of at
// most Size characters yields itself.
func (s *TextSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := min(start+s.size, len(runes))

		if end < len(runes) {
			floor := max(start, end-boundaryWindow)
			for i := end; i > floor; i-- {
				if isBoundary(runes[i-1]) {
					end = i
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))

		if end >= len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// SplitChunks splits every chunk's content, copying its metadata onto each
// piece.
func (s *TextSplitter) SplitChunks(docs []domain.Chunk) []domain.Chunk {
	var out []domain.Chunk
	for _, doc := range docs {
		for _, text := range s.Split(doc.Content) {
			out = append(out, domain.Chunk{
				Content:  text,
				Metadata: doc.Metadata.Clone(),
			})
		}
	}
	return out
}
