// Package embedding provides text embedding providers and an LRU embedding cache.
package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperjump/ridewise/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the embedder named by cfg.Provider, wrapped in an LRU cache when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, apiKey string) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI:
		e = NewOpenAIEmbedder(cfg.BaseURL, apiKey, cfg.Model, cfg.Dimensions, &http.Client{Timeout: cfg.Timeout})
	case config.ProviderOllama:
		e = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, &http.Client{Timeout: cfg.Timeout})
	case config.ProviderHash:
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		e = WithCache(e, cfg.CacheSize)
	}
	return e, nil
}

// embedEach embeds texts one request at a time through embed.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
