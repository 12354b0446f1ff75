package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"intelwire/internal/domain/entity"
	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

const maxFetchBytes = 10 << 20

// ReadabilityCrawler is a CrawlProvider that fetches pages directly and
// extracts article text with the Mozilla Readability algorithm. It serves as
// a local fallback when no remote crawl service is configured.
type ReadabilityCrawler struct {
	client   *http.Client
	breakers *circuitbreaker.Registry
	executor *retry.Executor
	retryCfg retry.Config
	logger   *logging.Logger
}

func NewReadabilityCrawler(executor *retry.Executor, breakers *circuitbreaker.Registry, logger *logging.Logger) *ReadabilityCrawler {
	return &ReadabilityCrawler{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects: %d", len(via))
				}
				return entity.ValidateURL(req.URL.String())
			},
		},
		breakers: breakers,
		executor: executor,
		retryCfg: retry.CrawlConfig(),
		logger:   logger,
	}
}

func (c *ReadabilityCrawler) Crawl(ctx context.Context, pageURL string) (*CrawlResult, error) {
	if err := entity.ValidateURL(pageURL); err != nil {
		return nil, fmt.Errorf("crawl %s: %w", pageURL, err)
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", pageURL, err)
	}

	// One breaker per target host so a single flaky site cannot open the
	// circuit for every fallback crawl.
	breaker := c.breakers.ForResource(parsed.Host)

	var result *CrawlResult
	_, err = breaker.Execute(func() (interface{}, error) {
		return nil, c.executor.Do(ctx, c.retryCfg, "local crawl "+pageURL, func() error {
			body, fetchErr := c.fetch(ctx, pageURL)
			if fetchErr != nil {
				return fetchErr
			}
			article, parseErr := readability.FromReader(bytes.NewReader(body), parsed)
			if parseErr != nil {
				return fmt.Errorf("extract content: %w", parseErr)
			}
			result = &CrawlResult{Content: article.TextContent, Markdown: article.TextContent}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", pageURL, err)
	}
	return result, nil
}

func (c *ReadabilityCrawler) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "intelwire/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
}
