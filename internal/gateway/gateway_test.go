package gateway

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/providers"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T) (*Gateway, *providers.MockClient, *llmcall.Recorder) {
	t.Helper()

	mock := providers.NewMockClient()
	registry := providers.NewRegistry()
	registry.SetLogger(quietLogger())
	registry.RegisterLLM("mock", mock)

	recorder := llmcall.NewRecorder(0)
	gw := New(Config{
		Registry:        registry,
		Recorder:        recorder,
		DefaultProvider: "mock",
		Logger:          quietLogger(),
	})
	return gw, mock, recorder
}

// TestInvoke_RecordsEveryCall tests that successes and failures both land
// in the recorder.
func TestInvoke_RecordsEveryCall(t *testing.T) {
	gw, mock, recorder := newTestGateway(t)
	msgs := []providers.Message{{Role: "user", Content: "hello"}}

	if _, err := gw.Invoke(context.Background(), "some-model", msgs, CallOptions{PromptKey: "test.ok"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	mock.ShouldFail = true
	if _, err := gw.Invoke(context.Background(), "some-model", msgs, CallOptions{PromptKey: "test.fail"}); err == nil {
		t.Fatal("Invoke() error = nil, want mock failure")
	}

	if recorder.TotalCalls() != 2 {
		t.Fatalf("TotalCalls() = %d, want 2 (failures recorded too)", recorder.TotalCalls())
	}

	recent := recorder.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("Recent(0) = %d calls, want 2", len(recent))
	}
	// Newest first.
	if recent[0].PromptKey != "test.fail" || recent[0].Success {
		t.Errorf("newest call = %+v, want failed test.fail", recent[0])
	}
	if recent[1].PromptKey != "test.ok" || !recent[1].Success {
		t.Errorf("oldest call = %+v, want successful test.ok", recent[1])
	}
}

// TestInvoke_ClientBangModelRouting tests "client!model" routing against
// the default-provider fallback.
func TestInvoke_ClientBangModelRouting(t *testing.T) {
	gw, mock, _ := newTestGateway(t)

	other := providers.NewMockClient()
	gw.registry.RegisterLLM("other", other)

	msgs := []providers.Message{{Role: "user", Content: "hi"}}

	result, err := gw.Invoke(context.Background(), "other!special-model", msgs, CallOptions{})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if other.RequestCount() != 1 || mock.RequestCount() != 0 {
		t.Errorf("routing counts other=%d mock=%d, want 1/0", other.RequestCount(), mock.RequestCount())
	}
	if result.ModelUsed != "special-model" {
		t.Errorf("ModelUsed = %q, want the part after the separator", result.ModelUsed)
	}

	// An unregistered prefix is not routing syntax; the whole id goes to
	// the default provider as a model name.
	result, err = gw.Invoke(context.Background(), "vendor/some-model", msgs, CallOptions{})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("default provider count = %d, want 1", mock.RequestCount())
	}
	if result.ModelUsed != "vendor/some-model" {
		t.Errorf("ModelUsed = %q, want full id", result.ModelUsed)
	}
}

// TestInvoke_UnknownClient tests the error for an unresolvable default
// provider.
func TestInvoke_UnknownClient(t *testing.T) {
	registry := providers.NewRegistry()
	registry.SetLogger(quietLogger())

	gw := New(Config{
		Registry:        registry,
		Recorder:        llmcall.NewRecorder(0),
		DefaultProvider: "nobody",
		Logger:          quietLogger(),
	})

	_, err := gw.Invoke(context.Background(), "model", []providers.Message{{Role: "user", Content: "x"}}, CallOptions{})
	if err == nil {
		t.Fatal("Invoke() error = nil, want unknown client error")
	}
}

// TestInvoke_ErrorsPropagateUnchanged tests that the gateway adds no retry
// or wrapping around client errors.
func TestInvoke_ErrorsPropagateUnchanged(t *testing.T) {
	gw, mock, _ := newTestGateway(t)
	mock.ShouldFail = true

	_, err := gw.Invoke(context.Background(), "m", []providers.Message{{Role: "user", Content: "x"}}, CallOptions{})
	if err == nil {
		t.Fatal("Invoke() error = nil, want client error")
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (no retry)", mock.RequestCount())
	}
}
