package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitagent/backend/model"
)

// testProvider is a minimal OpenAI-shaped provider for exercising the client
// without importing the providers package (which would cycle).
type testProvider struct{}

func (testProvider) Name() string { return "test" }

func (testProvider) BuildURL(baseURL string) string { return baseURL }

func (testProvider) SetHeaders(req *http.Request) {}

func (testProvider) BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error) {
	return json.Marshal(map[string]any{"model": model, "messages": messages})
}

func (testProvider) ParseResponse(body []byte, model string) (*Response, error) {
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse response: %w", err))
	}
	return &Response{Content: parsed.Content, Model: model}, nil
}

func init() {
	RegisterProvider(testProvider{})
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func testRegistry(endpoints map[string]*model.EndpointConfig, preferred []string) *model.Registry {
	caps := map[model.Capability]*model.CapabilityConfig{
		model.CapabilityGeneration: {Preferred: preferred},
	}
	return model.NewRegistry(caps, endpoints)
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		fmt.Fprint(w, `{"content": "hello"}`)
	}))
	defer srv.Close()

	registry := testRegistry(map[string]*model.EndpointConfig{
		"m1": {Provider: "test", URL: srv.URL, Model: "m1"},
	}, []string{"m1"})
	client := NewClient(registry, WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "generation",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello")
	}
	if resp.RequestID == "" {
		t.Error("RequestID is empty")
	}
}

func TestCompleteRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"content": "recovered"}`)
	}))
	defer srv.Close()

	registry := testRegistry(map[string]*model.EndpointConfig{
		"m1": {Provider: "test", URL: srv.URL, Model: "m1"},
	}, []string{"m1"})
	client := NewClient(registry, WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "generation",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("Content = %q, want %q", resp.Content, "recovered")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestCompleteFatalStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	registry := testRegistry(map[string]*model.EndpointConfig{
		"m1": {Provider: "test", URL: srv.URL, Model: "m1"},
	}, []string{"m1"})
	client := NewClient(registry, WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), Request{
		Capability: "generation",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Complete() error = nil, want fatal error")
	}
	if !IsFatal(err) {
		t.Errorf("IsFatal(err) = false for %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retries on fatal)", got)
	}
}

func TestCompleteFallsBackToNextModel(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": "fallback"}`)
	}))
	defer good.Close()

	registry := testRegistry(map[string]*model.EndpointConfig{
		"primary":   {Provider: "test", URL: bad.URL, Model: "primary"},
		"secondary": {Provider: "test", URL: good.URL, Model: "secondary"},
	}, []string{"primary", "secondary"})
	client := NewClient(registry, WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "generation",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "fallback" {
		t.Errorf("Content = %q, want %q", resp.Content, "fallback")
	}
}

func TestCompleteValidation(t *testing.T) {
	registry := testRegistry(map[string]*model.EndpointConfig{}, nil)
	client := NewClient(registry)

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Error("expected error for missing capability")
	}
	if _, err := client.Complete(context.Background(), Request{Capability: "generation"}); err == nil {
		t.Error("expected error for missing messages")
	}
}
