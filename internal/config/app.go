package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// GeneratorType selects the article generation backend.
type GeneratorType string

const (
	// GeneratorHTTP calls a generation API over plain HTTP.
	GeneratorHTTP GeneratorType = "http"
	// GeneratorOpenAI uses the OpenAI chat completion SDK.
	GeneratorOpenAI GeneratorType = "openai"
	// GeneratorClaude uses the Anthropic messages SDK.
	GeneratorClaude GeneratorType = "claude"
)

// AppConfig aggregates service configuration loaded from the environment.
type AppConfig struct {
	Pipeline  PipelineConfig
	Crawl     CrawlConfig
	Generator GeneratorConfig
	Notify    NotifyConfig
	Breaker   BreakerConfig
}

// PipelineConfig controls intelligence run behavior.
type PipelineConfig struct {
	// Parallelism is the number of sources processed concurrently.
	// Default: 1 (sequential)
	Parallelism int

	// LogRetentionDays is how long persisted logs are kept before the
	// scheduled cleanup removes them.
	// Default: 30
	LogRetentionDays int
}

// CrawlConfig configures the content crawl backend.
type CrawlConfig struct {
	// APIBaseURL is the scrape API endpoint. When empty the worker falls
	// back to direct fetching with readability extraction.
	APIBaseURL string

	// APIKey authenticates against the scrape API.
	APIKey string
}

// GeneratorConfig configures the article generation backend.
type GeneratorConfig struct {
	// Type selects the backend: "http", "openai" or "claude".
	// Default: "http"
	Type GeneratorType

	// BaseURL is the generation API endpoint. Required for the http backend.
	BaseURL string

	// APIKey authenticates against the selected backend. Required for the
	// openai and claude backends.
	APIKey string
}

// NotifyConfig configures event delivery.
type NotifyConfig struct {
	// WebhookEnabled turns webhook delivery on.
	// Default: false
	WebhookEnabled bool

	// WebhookURL is the endpoint events are posted to.
	WebhookURL string

	// WebhookTimeout is the HTTP timeout per delivery attempt.
	// Default: 10 seconds
	WebhookTimeout time.Duration

	// MaxConcurrent caps concurrent channel deliveries.
	// Default: 10
	MaxConcurrent int
}

// BreakerConfig overrides the circuit breaker policy for remote backends.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// a breaker open.
	// Default: 5
	FailureThreshold uint32

	// ResetTimeout is how long an open breaker rejects calls before
	// allowing a probe.
	// Default: 60 seconds
	ResetTimeout time.Duration

	// HalfOpenSuccesses is the number of successes required to close a
	// half-open breaker.
	// Default: 3
	HalfOpenSuccesses uint32
}

// LoadAppConfig loads service configuration from environment variables.
// Missing variables fall back to defaults; invalid combinations return an error.
func LoadAppConfig() (*AppConfig, error) {
	config := &AppConfig{
		Pipeline: PipelineConfig{
			Parallelism:      getEnvInt("PIPELINE_PARALLELISM", 1),
			LogRetentionDays: getEnvInt("LOG_RETENTION_DAYS", 30),
		},
		Crawl: CrawlConfig{
			APIBaseURL: getEnvOrDefault("CRAWL_API_BASE_URL", ""),
			APIKey:     getEnvOrDefault("CRAWL_API_KEY", ""),
		},
		Generator: GeneratorConfig{
			Type:    GeneratorType(getEnvOrDefault("GENERATOR_TYPE", string(GeneratorHTTP))),
			BaseURL: getEnvOrDefault("GENERATOR_BASE_URL", ""),
			APIKey:  getEnvOrDefault("GENERATOR_API_KEY", ""),
		},
		Notify: NotifyConfig{
			WebhookEnabled: getEnvBool("WEBHOOK_ENABLED", false),
			WebhookURL:     getEnvOrDefault("WEBHOOK_URL", ""),
			WebhookTimeout: getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			MaxConcurrent:  getEnvInt("NOTIFY_MAX_CONCURRENT", 10),
		},
		Breaker: BreakerConfig{
			FailureThreshold:  uint32(getEnvInt("BREAKER_FAILURE_THRESHOLD", 5)),
			ResetTimeout:      getEnvDuration("BREAKER_RESET_TIMEOUT", 60*time.Second),
			HalfOpenSuccesses: uint32(getEnvInt("BREAKER_HALF_OPEN_SUCCESSES", 3)),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *AppConfig) Validate() error {
	if c.Pipeline.Parallelism < 1 || c.Pipeline.Parallelism > 32 {
		return fmt.Errorf("PIPELINE_PARALLELISM must be between 1 and 32")
	}

	if c.Pipeline.LogRetentionDays < 1 {
		return fmt.Errorf("LOG_RETENTION_DAYS must be at least 1")
	}

	switch c.Generator.Type {
	case GeneratorHTTP:
		if c.Generator.BaseURL == "" {
			return fmt.Errorf("GENERATOR_BASE_URL is required for the http generator")
		}
	case GeneratorOpenAI, GeneratorClaude:
		if c.Generator.APIKey == "" {
			return fmt.Errorf("GENERATOR_API_KEY is required for the %s generator", c.Generator.Type)
		}
	default:
		return fmt.Errorf("GENERATOR_TYPE must be one of http, openai, claude")
	}

	if c.Notify.WebhookEnabled {
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when webhooks are enabled")
		}
		if c.Notify.WebhookTimeout <= 0 {
			return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
		}
	}

	if c.Notify.MaxConcurrent < 1 || c.Notify.MaxConcurrent > 100 {
		return fmt.Errorf("NOTIFY_MAX_CONCURRENT must be between 1 and 100")
	}

	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive")
	}

	if c.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("BREAKER_RESET_TIMEOUT must be positive")
	}

	if c.Breaker.HalfOpenSuccesses == 0 {
		return fmt.Errorf("BREAKER_HALF_OPEN_SUCCESSES must be positive")
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool parses boolean environment variable with default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt parses integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration parses duration environment variable with default.
// Supports formats like "30s", "1m", "2h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
