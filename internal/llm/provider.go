// Package llm defines the chat model contract and its HTTP providers.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperjump/ridewise/internal/config"
)

// Message is a chat message in a provider-agnostic format.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Options holds per-call model parameters.
type Options struct {
	Temperature *float64 // nil leaves the provider default
	MaxTokens   int
	Model       string // overrides the provider default
}

// Option sets a per-call parameter.
type Option func(*Options)

// WithTemperature sets the sampling temperature. Zero is sent as zero.
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithModel overrides the provider's model for one call.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider is a chat model backend.
type Provider interface {
	// Chat sends the conversation to the model and returns its reply.
	Chat(ctx context.Context, messages []Message, opts ...Option) (string, error)
}

func applyOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New builds the provider named by cfg.Provider.
func New(cfg config.LLMConfig, apiKey string) (Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, apiKey, cfg.Model, client), nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, client), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
