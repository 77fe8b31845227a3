package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"shopchat/internal/domain/entity"
)

// GeminiClient wraps the Gemini API for prompt completion. Every call is
// bounded by a per-request timeout so a slow model never stalls a chat.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

func NewGeminiClientFromClient(c *genai.Client, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{client: c, model: model, timeout: timeout}
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from %s", entity.ErrLLMUnavailable, g.model)
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Embedder turns text into dense vectors for the product index.
type Embedder struct {
	client *genai.Client
	model  string // e.g. "text-embedding-004"
}

func NewEmbedderFromClient(c *genai.Client, model string) *Embedder {
	return &Embedder{client: c, model: model}
}

func (e *Embedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("embed content: no embeddings returned by %s", e.model)
	}
	return res.Embeddings[0].Values, nil
}
