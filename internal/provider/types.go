// Package provider holds the text-generation backends used to phrase
// recommendations.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"go.uber.org/zap"
)

// Generator turns a prompt into text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Kind names a generator implementation.
type Kind string

const (
	KindGemini Kind = "GEMINI"
	KindOllama Kind = "OLLAMA"
)

// Config holds configuration for the generation provider.
type Config struct {
	Provider string        `json:"provider"`
	Endpoint string        `json:"endpoint"`
	Model    string        `json:"model"`
	APIKey   string        `json:"api_key"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// New builds the generator selected by cfg.Provider. An empty provider
// means Gemini.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Generator, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(cfg.Provider))) {
	case KindGemini, "":
		return NewGeminiGenerator(ctx, cfg)
	case KindOllama:
		if cfg.Endpoint == "" {
			cfg.Endpoint = defaultOllamaEndpoint
		}
		if cfg.Model == "" {
			cfg.Model = defaultOllamaModel
		}
		return NewChatGenerator(cfg, logger), nil
	default:
		return nil, apperr.Configf("unknown generation provider %q", cfg.Provider)
	}
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
