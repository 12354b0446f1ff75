package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

// OpenAIGenerator implements Generator backed by the OpenAI SDK.
type OpenAIGenerator struct {
	client   *openai.Client
	breaker  *circuitbreaker.CircuitBreaker
	executor *retry.Executor
	retryCfg retry.Config
	model    string
	opts     GenerateOptions
	logger   *logging.Logger
}

func NewOpenAIGenerator(apiKey string, executor *retry.Executor, logger *logging.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:   openai.NewClient(apiKey),
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig("openai-api")),
		executor: executor,
		retryCfg: retry.GenerateConfig(),
		model:    openai.GPT4oMini,
		opts:     DefaultGenerateOptions(),
		logger:   logger,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	var result string
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.executor.Do(ctx, g.retryCfg, "openai generate", func() error {
			resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: g.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				MaxTokens:   g.opts.MaxTokens,
				Temperature: float32(g.opts.Temperature),
			})
			if err != nil {
				return fmt.Errorf("openai api error: %w", err)
			}
			if len(resp.Choices) == 0 {
				return errors.New("openai api returned no choices")
			}
			result = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			g.logger.Warn(ctx, "openai generate rejected, circuit breaker open",
				logging.WithContext("remote"))
		}
		return "", err
	}
	return result, nil
}
