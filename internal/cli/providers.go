package cli

import (
	"context"
	"errors"
	"fmt"

	"supportbot/config"
	"supportbot/internal/adapter/cache"
	"supportbot/internal/adapter/chunker"
	"supportbot/internal/adapter/dataset"
	"supportbot/internal/adapter/embedding"
	"supportbot/internal/adapter/fs"
	"supportbot/internal/adapter/llm"
	"supportbot/internal/adapter/store"
	"supportbot/internal/port"
	"supportbot/internal/usecase"
)

// newEmbedder builds the batching document embedder for the configured
// provider. A missing credential is fatal.
func newEmbedder(cfg *config.Config) (*embedding.Batcher, error) {
	ec := cfg.Embedding

	var raw port.Embedder
	switch ec.Provider {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:    config.Credential(ec.APIKeyEnv),
			Model:     ec.Model,
			BaseURL:   ec.BaseURL,
			Dimension: ec.Dimension,
			Timeout:   ec.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		raw = e
	case "ollama":
		raw = embedding.NewOllamaEmbedder(embedding.OpenAIConfig{
			Model:     ec.Model,
			BaseURL:   ec.BaseURL,
			Dimension: ec.Dimension,
			Timeout:   ec.Timeout,
		})
	case "mock":
		raw = embedding.NewMockEmbedder(ec.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}

	if ec.Provider != "mock" {
		retryCfg := embedding.DefaultRetryConfig()
		retryCfg.MaxRetries = ec.MaxRetries
		if ec.Timeout > 0 {
			retryCfg.Timeout = ec.Timeout
		}
		raw = embedding.NewRetryEmbedder(raw, retryCfg)
	}

	return embedding.NewBatcher(raw, ec.BatchSize, logger), nil
}

// newChatModel builds the completion provider. It returns a nil model, and
// the chatbot answers from the keyword table, when the provider is "none"
// or its credential is missing.
func newChatModel(cfg *config.Config) (port.ChatModel, error) {
	cc := cfg.Chat
	lc := llm.Config{
		APIKey:      config.Credential(cc.APIKeyEnv),
		Model:       cc.Model,
		BaseURL:     cc.BaseURL,
		Temperature: cc.Temperature,
		MaxTokens:   cc.MaxTokens,
		Timeout:     cc.Timeout,
	}

	var (
		model port.ChatModel
		err   error
	)
	switch cc.Provider {
	case "", "none", "keyword":
		return nil, nil
	case "openai":
		model, err = llm.NewOpenAIChat(lc)
	case "anthropic":
		model, err = llm.NewAnthropicChat(lc)
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cc.Provider)
	}

	if errors.Is(err, port.ErrMissingCredential) {
		logger.Warn("chat API key not set, using fallback responses", "provider", cc.Provider, "env", cc.APIKeyEnv)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

// newPreparer builds the raw → processed pipeline from configuration.
func newPreparer(cfg *config.Config) *usecase.PrepareUseCase {
	walker := fs.NewWalker(cfg.Data.Includes, cfg.Data.Excludes)
	loader := dataset.NewLoader(cfg.Data.RawFile, cfg.Data.RawDir, walker, logger)
	splitter := chunker.NewTextSplitter(cfg.Data.ChunkSize, cfg.Data.ChunkOverlap)
	return usecase.NewPrepareUseCase(loader, splitter, cfg.Data.ProcessedFile, logger)
}

// openStore loads or builds the vector store from configuration. On a first
// run without processed data it prepares the data before embedding.
func openStore(ctx context.Context, cfg *config.Config, embedder port.DocumentEmbedder, force bool) (*store.VectorStore, *usecase.IndexResult, error) {
	uc := usecase.NewIndexUseCase(embedder, cfg.Data.SnapshotFile, cfg.Data.ProcessedFile, logger).
		WithPreparer(newPreparer(cfg))
	return uc.BuildStore(ctx, force)
}

// newRetriever wraps the store in a fixed-k retriever, cached when enabled.
func newRetriever(cfg *config.Config, s *store.VectorStore) port.Retriever {
	r := s.AsRetriever(cfg.Retrieve.TopK)
	if cfg.Retrieve.CacheSize <= 0 {
		return r
	}
	return cache.NewCachedRetriever(r, s, cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL))
}
