package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

// CrawlResult is the extracted content of one crawled page.
type CrawlResult struct {
	Content  string
	Markdown string
}

// CrawlProvider fetches page content for the orchestrator. Implementations
// are the remote crawl API and the local readability fallback.
type CrawlProvider interface {
	Crawl(ctx context.Context, pageURL string) (*CrawlResult, error)
}

// CrawlClient calls the remote crawl service. The service can report failure
// inside a 200 response, which is surfaced as a domain error rather than a
// transport error.
type CrawlClient struct {
	client *Client
}

type crawlRequest struct {
	URL     string       `json:"url"`
	Options crawlOptions `json:"options"`
}

type crawlOptions struct {
	OnlyMainContent bool     `json:"onlyMainContent"`
	Formats         []string `json:"formats"`
}

type crawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    []struct {
		Content  string `json:"content"`
		Markdown string `json:"markdown"`
	} `json:"data,omitempty"`
}

func NewCrawlClient(baseURL, apiKey string, executor *retry.Executor, breakers *circuitbreaker.Registry, logger *logging.Logger) *CrawlClient {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &CrawlClient{
		client: NewClient(baseURL, executor, breakers, logger,
			WithHeaders(headers),
			WithTimeout(60*time.Second),
			WithRetryConfig(retry.CrawlConfig()),
		),
	}
}

func (c *CrawlClient) Crawl(ctx context.Context, pageURL string) (*CrawlResult, error) {
	body := crawlRequest{
		URL: pageURL,
		Options: crawlOptions{
			OnlyMainContent: true,
			Formats:         []string{"markdown"},
		},
	}

	respBody, err := c.client.Post(ctx, "/v1/scrape", body)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", pageURL, err)
	}

	var resp crawlResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("crawl %s: decode response: %w", pageURL, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("crawl %s: remote reported failure: %s", pageURL, resp.Error)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("crawl %s: remote returned no data", pageURL)
	}

	return &CrawlResult{
		Content:  resp.Data[0].Content,
		Markdown: resp.Data[0].Markdown,
	}, nil
}

// BreakerStats exposes the crawl client's circuit breaker state.
func (c *CrawlClient) BreakerStats() []circuitbreaker.Stats {
	return c.client.BreakerStats()
}
