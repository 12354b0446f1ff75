package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

func newHTTPGenerator(srvURL string) *HTTPGenerator {
	logger := logging.NewNop()
	g := NewHTTPGenerator(srvURL, "gen-key",
		retry.NewExecutor(logger),
		circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig("generate")),
		logger)
	g.client.retryCfg = fastRetry(2)
	g.limiter = rate.NewLimiter(rate.Inf, 1)
	return g
}

func TestHTTPGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["prompt"] != "write about Go" {
			t.Errorf("prompt = %v", req["prompt"])
		}
		if req["maxTokens"] != float64(2000) {
			t.Errorf("maxTokens = %v", req["maxTokens"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Title: Go\nContent: body"}}]}`))
	}))
	defer srv.Close()

	got, err := newHTTPGenerator(srv.URL).Generate(context.Background(), "write about Go")
	if err != nil {
		t.Fatalf("Generate err=%v", err)
	}
	if !strings.HasPrefix(got, "Title: Go") {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestHTTPGenerator_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newHTTPGenerator(srv.URL).Generate(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("want no-choices error, got %v", err)
	}
}
