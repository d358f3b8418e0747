package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Chunk is a unit of retrievable text. Chunks are never mutated after creation.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Well-known metadata keys.
const (
	MetaSource  = "source"
	MetaSection = "section"
	MetaType    = "type"
	MetaIndex   = "index"
)

// Metadata maps string keys to string or int values.
type Metadata map[string]any

// UnmarshalJSON decodes integral numbers as int so that values survive a
// JSON round trip unchanged.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}

	out := make(Metadata, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	*m = out
	return nil
}

func normalizeValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// String returns the string value for key, or "" if absent or not a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns the int value for key.
func (m Metadata) Int(key string) (int, bool) {
	i, ok := m[key].(int)
	return i, ok
}

// Clone returns a shallow copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Embedding is a fixed-length vector produced by an embedding provider.
type Embedding []float32

// Zero returns an all-zero embedding of the given dimension.
func Zero(dim int) Embedding {
	if dim < 0 {
		dim = 0
	}
	return make(Embedding, dim)
}

// Norm returns the L2 norm of the embedding.
func (e Embedding) Norm() float64 {
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether every component is zero.
func (e Embedding) IsZero() bool {
	for _, v := range e {
		if v != 0 {
			return false
		}
	}
	return true
}

// ScoredChunk pairs a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk    Chunk   `json:"chunk"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RawSection is one page or file of source text before chunking.
type RawSection struct {
	Name       string   `json:"-"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
}

// Source returns the URL when known and the section name otherwise.
func (s RawSection) Source() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Name
}
