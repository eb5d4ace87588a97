package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newORClient(baseURL string) *OpenRouterClient {
	return NewOpenRouterClient(OpenRouterConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
}

// TestOpenRouterChat_FailureLatencyRecorded tests that failed calls carry
// their latency, so call records show how long the failure took.
func TestOpenRouterChat_FailureLatencyRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newORClient(srv.URL)
	result, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Chat() error = nil, want http error")
	}
	if result.Success {
		t.Error("Success = true on a failed call")
	}
	if result.ErrorType != "http_error" {
		t.Errorf("ErrorType = %q, want http_error", result.ErrorType)
	}
	if result.ExecutionTime <= 0 {
		t.Error("ExecutionTime not set on the http failure branch")
	}
}

// TestOpenRouterChat_EmptyChoices tests the empty-response branch.
func TestOpenRouterChat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"r1","model":"m","choices":[]}`))
	}))
	defer srv.Close()

	c := newORClient(srv.URL)
	result, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Chat() error = nil, want empty-response error")
	}
	if result.ErrorType != "empty_response" {
		t.Errorf("ErrorType = %q, want empty_response", result.ErrorType)
	}
	if result.ExecutionTime <= 0 {
		t.Error("ExecutionTime not set on the empty-response branch")
	}
}
