package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/colonyops/forager/internal/core/config"
)

// Gemini is a PlanBackend backed by the Gemini API.
type Gemini struct {
	client    *genai.Client
	transport *http.Transport
	model     string
	gen       *genai.GenerateContentConfig
}

// NewGemini creates a Gemini backend. cfg.APIKey is required.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini requires llm.api_key")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		transport: transport,
		model:     cfg.Model,
		gen: &genai.GenerateContentConfig{
			Temperature: ptr(float32(cfg.Temperature)),
			TopP:        ptr(float32(cfg.TopP)),
		},
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.gen)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) Close() error {
	g.transport.CloseIdleConnections()
	return nil
}

func ptr[T any](v T) *T { return &v }
