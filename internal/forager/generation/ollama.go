package generation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/colonyops/forager/internal/core/config"
)

// Ollama is a PlanBackend backed by an Ollama server's generate endpoint.
type Ollama struct {
	client      *api.Client
	transport   *http.Transport
	model       string
	temperature float64
	topP        float64
}

// NewOllama creates an Ollama backend for cfg.BaseURL.
func NewOllama(cfg config.LLMConfig) (*Ollama, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama base url %q must include scheme and host", cfg.BaseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &Ollama{
		client:      api.NewClient(base, &http.Client{Transport: transport}),
		transport:   transport,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": o.temperature,
			"top_p":       o.topP,
		},
	}

	var out strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return out.String(), nil
}

func (o *Ollama) Close() error {
	o.transport.CloseIdleConnections()
	return nil
}
