// Package embedding turns text into vectors through a single provider chosen
// at startup.
package embedding

import (
	"context"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"go.uber.org/zap"
)

// Kind names a provider implementation.
type Kind string

const (
	KindOllama Kind = "OLLAMA"
	KindGemini Kind = "GEMINI"
)

// Role hints what the vector is for. Both roles land in the same space.
type Role string

const (
	RoleDocument Role = "RETRIEVAL_DOCUMENT"
	RoleQuery    Role = "RETRIEVAL_QUERY"
)

// Provider generates vector embeddings from text.
type Provider interface {
	Kind() Kind
	// Model names the embedding model. Vectors from different models are
	// never interchangeable, even within one Kind.
	Model() string
	Embed(ctx context.Context, text string, role Role) ([]float32, error)
}

// Config holds embedding provider configuration.
type Config struct {
	Provider string `json:"provider"` // "OLLAMA" or "GEMINI"
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

// ParseKind normalizes a configured provider name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindOllama, KindGemini:
		return k, nil
	case "":
		return "", apperr.Configf("embedding provider is required (OLLAMA or GEMINI)")
	default:
		return "", apperr.Configf("unknown embedding provider %q", s)
	}
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
	kind, err := ParseKind(cfg.Provider)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindGemini:
		return NewGeminiProvider(ctx, cfg)
	default:
		return NewLocalProvider(cfg), nil
	}
}

const probeText = "sample text"

// Probe embeds a fixed sample to learn the provider's vector dimension.
func Probe(ctx context.Context, p Provider) (int, error) {
	vec, err := p.Embed(ctx, probeText, RoleDocument)
	if err != nil {
		return 0, err
	}
	return len(vec), nil
}

func emptyVector(op string) error {
	return apperr.Wrap(apperr.ErrProvider, op, errEmptyVector)
}
