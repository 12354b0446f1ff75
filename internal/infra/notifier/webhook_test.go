package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(url string) WebhookConfig {
	return WebhookConfig{Enabled: true, URL: url, Timeout: 5 * time.Second}
}

func TestWebhookConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  WebhookConfig
		wantErr bool
	}{
		{"disabled needs nothing", WebhookConfig{Enabled: false}, false},
		{"enabled with url", WebhookConfig{Enabled: true, URL: "https://example.com/hook", Timeout: time.Second}, false},
		{"enabled without url", WebhookConfig{Enabled: true, Timeout: time.Second}, true},
		{"enabled zero timeout", WebhookConfig{Enabled: true, URL: "https://example.com/hook"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestWebhookChannel_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(testConfig(srv.URL))
	err := ch.Send(context.Background(), "article.created", map[string]any{"article_id": 1})
	if err != nil {
		t.Fatalf("Send err=%v", err)
	}
	if got.Event != "article.created" {
		t.Fatalf("event = %s", got.Event)
	}
	if got.Timestamp == "" {
		t.Fatal("timestamp missing")
	}
}

func TestWebhookChannel_Disabled(t *testing.T) {
	ch := NewWebhookChannel(WebhookConfig{Enabled: false})
	err := ch.Send(context.Background(), "x", nil)
	if !errors.Is(err, ErrChannelDisabled) {
		t.Fatalf("want ErrChannelDisabled, got %v", err)
	}
}

func TestWebhookChannel_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(testConfig(srv.URL))
	if err := ch.Send(context.Background(), "job.completed", nil); err != nil {
		t.Fatalf("Send err=%v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestWebhookChannel_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(testConfig(srv.URL))
	err := ch.Send(context.Background(), "job.completed", nil)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("want ClientError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}
