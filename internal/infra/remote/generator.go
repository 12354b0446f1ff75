package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

// Generator produces article text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateOptions bound one generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// DefaultGenerateOptions returns the options used for article generation.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{MaxTokens: 2000, Temperature: 0.7}
}

// HTTPGenerator calls a chat-completions style text-generation endpoint.
// Generation APIs are rate limited upstream, so calls are paced locally and
// retried only on throttle or server errors.
type HTTPGenerator struct {
	client  *Client
	limiter *rate.Limiter
	opts    GenerateOptions
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewHTTPGenerator(baseURL, apiKey string, executor *retry.Executor, breakers *circuitbreaker.Registry, logger *logging.Logger) *HTTPGenerator {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &HTTPGenerator{
		client: NewClient(baseURL, executor, breakers, logger,
			WithHeaders(headers),
			WithTimeout(90*time.Second),
			WithRetryConfig(retry.GenerateConfig()),
		),
		// One request per 2 seconds with a small burst keeps us under
		// typical generation API quotas.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
		opts:    DefaultGenerateOptions(),
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generate: rate limit wait: %w", err)
	}

	body := generateRequest{
		Prompt:      prompt,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}

	respBody, err := g.client.Post(ctx, "/v1/chat/completions", body)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("generate: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate: remote returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// BreakerStats exposes the generator client's circuit breaker state.
func (g *HTTPGenerator) BreakerStats() []circuitbreaker.Stats {
	return g.client.BreakerStats()
}
