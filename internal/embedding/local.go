package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "nomic-embed-text"
)

var errEmptyVector = errors.New("no embedding returned")

// LocalProvider implements Provider using an Ollama-compatible embeddings API.
type LocalProvider struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewLocalProvider creates a new LocalProvider from the given Config.
func NewLocalProvider(cfg Config) *LocalProvider {
	p := &LocalProvider{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   http.DefaultClient,
	}
	if p.endpoint == "" {
		p.endpoint = defaultOllamaEndpoint
	}
	if p.model == "" {
		p.model = defaultOllamaModel
	}
	return p
}

func (p *LocalProvider) Kind() Kind { return KindOllama }

func (p *LocalProvider) Model() string { return p.model }

type localRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type localResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed sends text to the Ollama endpoint. Ollama has no task hints, so role
// is ignored.
func (p *LocalProvider) Embed(ctx context.Context, text string, _ Role) ([]float32, error) {
	body, err := json.Marshal(localRequest{
		Model:  p.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrProvider, "ollama embed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperr.Wrap(apperr.ErrProvider, "ollama embed",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result localResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.Wrap(apperr.ErrProvider, "ollama embed", fmt.Errorf("decode response: %w", err))
	}
	if len(result.Embedding) == 0 {
		return nil, emptyVector("ollama embed")
	}
	return result.Embedding, nil
}
