package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the slice of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements Generator using the Gemini API.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

// NewGeminiGenerator creates a Gemini generator. An API key is required.
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, apperr.Configf("GEMINI generation provider requires an api key")
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
	return newGeminiGenerator(client.Models, cfg.Model), nil
}

func newGeminiGenerator(models contentGenerator, model string) *GeminiGenerator {
	// Model should not start with "models/"
	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiGenerator{models: models, model: model}
}

func (g *GeminiGenerator) Name() string { return "gemini:" + g.model }

// Generate returns the text parts of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrProvider, "gemini generate", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperr.Wrap(apperr.ErrProvider, "gemini generate", errors.New("no candidates"))
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", apperr.Wrap(apperr.ErrProvider, "gemini generate",
			errors.New("empty response, finish reason "+string(resp.Candidates[0].FinishReason)))
	}
	return sb.String(), nil
}
