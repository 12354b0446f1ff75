package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

// ClaudeGenerator implements Generator backed by the Anthropic SDK.
type ClaudeGenerator struct {
	client   anthropic.Client
	breaker  *circuitbreaker.CircuitBreaker
	executor *retry.Executor
	retryCfg retry.Config
	model    string
	opts     GenerateOptions
	logger   *logging.Logger
}

func NewClaudeGenerator(apiKey string, executor *retry.Executor, logger *logging.Logger) *ClaudeGenerator {
	return &ClaudeGenerator{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig("claude-api")),
		executor: executor,
		retryCfg: retry.GenerateConfig(),
		model:    string(anthropic.ModelClaudeSonnet4_5_20250929),
		opts:     DefaultGenerateOptions(),
		logger:   logger,
	}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	var result string
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.executor.Do(ctx, g.retryCfg, "claude generate", func() error {
			message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
				Model:     anthropic.Model(g.model),
				MaxTokens: int64(g.opts.MaxTokens),
				Messages: []anthropic.MessageParam{
					anthropic.NewUserMessage(
						anthropic.NewTextBlock(prompt),
					),
				},
			})
			if err != nil {
				return fmt.Errorf("claude api error: %w", err)
			}
			if len(message.Content) == 0 {
				return errors.New("claude api returned empty response")
			}
			textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
			if !ok {
				return errors.New("claude api returned unexpected response type")
			}
			result = textBlock.Text
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			g.logger.Warn(ctx, "claude generate rejected, circuit breaker open",
				logging.WithContext("remote"))
		}
		return "", err
	}
	return result, nil
}
