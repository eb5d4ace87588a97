package llmcall

import (
	"fmt"
	"testing"
	"time"

	"github.com/awilliams/curator/internal/providers"
)

func makeCall(model, promptKey string) *Call {
	return &Call{
		ID:        fmt.Sprintf("call-%s-%s", model, promptKey),
		Timestamp: time.Now(),
		PromptKey: promptKey,
		Provider:  "mock",
		Model:     model,
		Success:   true,
	}
}

// TestRecorder_RetentionTrim tests the rolling window.
func TestRecorder_RetentionTrim(t *testing.T) {
	r := NewRecorder(3)
	for i := 0; i < 5; i++ {
		r.Record(makeCall("m", fmt.Sprintf("key-%d", i)))
	}

	recent := r.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("retained = %d, want 3", len(recent))
	}
	// Newest first: keys 4, 3, 2 survive the trim.
	for i, want := range []string{"key-4", "key-3", "key-2"} {
		if recent[i].PromptKey != want {
			t.Errorf("recent[%d].PromptKey = %q, want %q", i, recent[i].PromptKey, want)
		}
	}
}

// TestRecorder_RecentLimit tests the limit parameter.
func TestRecorder_RecentLimit(t *testing.T) {
	r := NewRecorder(10)
	for i := 0; i < 4; i++ {
		r.Record(makeCall("m", fmt.Sprintf("key-%d", i)))
	}

	recent := r.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d calls, want 2", len(recent))
	}
	if recent[0].PromptKey != "key-3" || recent[1].PromptKey != "key-2" {
		t.Errorf("Recent(2) = %q, %q, want newest first", recent[0].PromptKey, recent[1].PromptKey)
	}
}

// TestRecorder_CountersSurviveTrim tests that per-model counters keep
// counting past the retention window.
func TestRecorder_CountersSurviveTrim(t *testing.T) {
	r := NewRecorder(2)
	for i := 0; i < 6; i++ {
		r.Record(makeCall("cheap", "k"))
	}
	r.Record(makeCall("strong", "k"))

	counts := r.CountByModel()
	if counts["cheap"] != 6 {
		t.Errorf("counts[cheap] = %d, want 6", counts["cheap"])
	}
	if counts["strong"] != 1 {
		t.Errorf("counts[strong] = %d, want 1", counts["strong"])
	}
	if r.TotalCalls() != 7 {
		t.Errorf("TotalCalls() = %d, want 7", r.TotalCalls())
	}
	if len(r.Recent(0)) != 2 {
		t.Errorf("retained = %d, want 2", len(r.Recent(0)))
	}
}

// TestRecorder_NilCallIgnored tests the nil guard.
func TestRecorder_NilCallIgnored(t *testing.T) {
	r := NewRecorder(0)
	r.Record(nil)
	if r.TotalCalls() != 0 {
		t.Errorf("TotalCalls() = %d, want 0", r.TotalCalls())
	}
}

// TestFromChatResult tests the record conversion, including the error
// message carried on failures.
func TestFromChatResult(t *testing.T) {
	result := &providers.ChatResult{
		Provider:         "openrouter",
		ModelUsed:        "some-model",
		PromptTokens:     10,
		CompletionTokens: 20,
		ExecutionTime:    1500 * time.Millisecond,
		Success:          true,
	}

	call := FromChatResult(result, RecordOptions{ItemID: "item-1", PromptKey: "convert.document"})
	if call.Model != "some-model" || call.Provider != "openrouter" {
		t.Errorf("call identity = %q/%q", call.Provider, call.Model)
	}
	if call.ItemID != "item-1" || call.PromptKey != "convert.document" {
		t.Errorf("call context = %q/%q", call.ItemID, call.PromptKey)
	}
	if call.LatencyMs != 1500 {
		t.Errorf("LatencyMs = %d, want 1500", call.LatencyMs)
	}
	if call.InputTokens != 10 || call.OutputTokens != 20 {
		t.Errorf("tokens = %d/%d, want 10/20", call.InputTokens, call.OutputTokens)
	}
	if call.Error != "" {
		t.Errorf("Error = %q, want empty on success", call.Error)
	}

	result.Success = false
	result.ErrorMessage = "rate limited"
	failed := FromChatResult(result, RecordOptions{})
	if failed.Success || failed.Error != "rate limited" {
		t.Errorf("failed call = %+v, want error carried over", failed)
	}

	if FromChatResult(nil, RecordOptions{}) != nil {
		t.Error("FromChatResult(nil) != nil")
	}
}
