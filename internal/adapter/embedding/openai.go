package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"supportbot/internal/port"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// OpenAIConfig configures an OpenAI-compatible embedding client.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Dimension is requested from text-embedding-3 models. For other models
	// it is only a first guess until the server answers. 0 = derive from model.
	Dimension int
	Timeout   time.Duration
}

// OpenAIEmbedder talks to the /embeddings endpoint of OpenAI or any
// server speaking the same protocol. Its dimension never changes once a
// response has confirmed it; later responses of another size are errors.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimension  int
	requestDim int  // sent as "dimensions", 0 = omit
	confirmed  bool // dimension is final
}

// NewOpenAIEmbedder creates an embedder for api.openai.com (or cfg.BaseURL).
// It returns port.ErrMissingCredential when cfg.APIKey is empty.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder: %w", port.ErrMissingCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	return newCompatibleEmbedder(cfg), nil
}

// NewOllamaEmbedder creates an embedder for a local Ollama server. No key is needed.
func NewOllamaEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	return newCompatibleEmbedder(cfg)
}

func newCompatibleEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	e := &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
	if e.dimension <= 0 {
		e.dimension = modelDimension(cfg.Model)
	}

	switch {
	case supportsDimensions(cfg.Model):
		if cfg.Dimension > 0 {
			e.requestDim = cfg.Dimension
		}
		e.confirmed = true
	case cfg.Model == string(openai.AdaEmbeddingV2):
		e.dimension = 1536
		e.confirmed = true
	}
	return e
}

// supportsDimensions reports whether the model accepts a requested size.
func supportsDimensions(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3-")
}

func modelDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	default:
		// text-embedding-3-small, text-embedding-ada-002
		return 1536
	}
}

// Embed sends all texts in a single request.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.requestDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding response index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	n := len(embeddings[0])
	for i, v := range embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding response is missing vector %d", i)
		}
		if len(v) != n {
			return nil, fmt.Errorf("embedding response vector %d has dimension %d, expected %d", i, len(v), n)
		}
	}

	if !e.confirmed {
		e.dimension = n
		e.confirmed = true
	}
	if n != e.dimension {
		return nil, fmt.Errorf("embedding response has dimension %d, expected %d", n, e.dimension)
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
