package embedding

import (
	"context"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-embedding-001"

// contentEmbedder is the slice of genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiProvider implements Provider using the Gemini embedContent API.
type GeminiProvider struct {
	models contentEmbedder
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider. An API key is required.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperr.Configf("GEMINI embedding provider requires an api key")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "gemini client", err)
	}
	return newGeminiProvider(client.Models, cfg.Model), nil
}

func newGeminiProvider(models contentEmbedder, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{models: models, model: model}
}

func (p *GeminiProvider) Kind() Kind { return KindGemini }

func (p *GeminiProvider) Model() string { return p.model }

// Embed calls embedContent with role as the task type.
func (p *GeminiProvider) Embed(ctx context.Context, text string, role Role) ([]float32, error) {
	resp, err := p.models.EmbedContent(ctx, p.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: string(role),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrProvider, "gemini embed", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, emptyVector("gemini embed")
	}
	return resp.Embeddings[0].Values, nil
}
