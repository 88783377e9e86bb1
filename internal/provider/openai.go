package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"go.uber.org/zap"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434/v1"
	defaultOllamaModel    = "llama3.2:latest"

	systemPrompt = "You are a helpful shopping assistant."
)

// ChatGenerator implements Generator for OpenAI-compatible chat APIs, which
// is how a local Ollama server is reached.
type ChatGenerator struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewChatGenerator creates a generator for an OpenAI-compatible endpoint.
// A zero Timeout leaves the http.Client default in place.
func NewChatGenerator(cfg Config, logger *zap.Logger) *ChatGenerator {
	return &ChatGenerator{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (g *ChatGenerator) Name() string { return "chat:" + g.config.Model }

// Generate sends the prompt as a single user turn after the system prompt.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ChatRequest{
		Model: g.config.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(g.config.Endpoint, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrProvider, "chat generate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", apperr.Wrap(apperr.ErrProvider, "chat generate",
			fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody)))
	}

	var oaiResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return "", apperr.Wrap(apperr.ErrProvider, "chat generate", fmt.Errorf("decode response: %w", err))
	}
	if len(oaiResp.Choices) == 0 || oaiResp.Choices[0].Message.Content == "" {
		return "", apperr.Wrap(apperr.ErrProvider, "chat generate", errors.New("empty response from provider"))
	}

	g.logger.Debug("chat completion",
		zap.String("model", oaiResp.Model),
		zap.Int("total_tokens", oaiResp.Usage.TotalTokens))
	return oaiResp.Choices[0].Message.Content, nil
}

// openAI-specific response types
type openAIChatResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   Usage          `json:"usage"`
}

type openAIChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}
