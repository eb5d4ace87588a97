package escalate

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/providers"
	"github.com/awilliams/curator/internal/quality"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEscalator(mock *providers.MockClient) *Escalator {
	registry := providers.NewRegistry()
	registry.SetLogger(quietLogger())
	registry.RegisterLLM("mock", mock)

	gw := gateway.New(gateway.Config{
		Registry:        registry,
		Recorder:        llmcall.NewRecorder(0),
		DefaultProvider: "mock",
		Logger:          quietLogger(),
	})
	return New(Config{Gateway: gw, Model: "strong-model", Logger: quietLogger()})
}

// segMetrics builds metrics with n contiguous 10-char segments; indices in
// failing get a correctness score below the default minimum.
func segMetrics(n int, failing ...int) *quality.Metrics {
	failSet := make(map[int]bool)
	for _, i := range failing {
		failSet[i] = true
	}

	m := &quality.Metrics{}
	for i := 0; i < n; i++ {
		score := 0.9
		if failSet[i] {
			score = 0.2
		}
		m.Segments = append(m.Segments, quality.SegmentScore{
			Index:            i,
			StartOffset:      i * 10,
			EndOffset:        (i + 1) * 10,
			Correctness:      score,
			ContextAlignment: 0.9,
			Issues:           []string{"wording unclear"},
		})
	}
	return m
}

// TestEscalate_NoFailingSegments tests the defensive none path.
func TestEscalate_NoFailingSegments(t *testing.T) {
	mock := providers.NewMockClient()
	e := newTestEscalator(mock)

	text := strings.Repeat("x", 30)
	out, err := e.Escalate(context.Background(), text, segMetrics(3), quality.DefaultThresholds(), "item-1")
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}

	if out.Mode != ModeNone {
		t.Errorf("Mode = %q, want %q", out.Mode, ModeNone)
	}
	if out.RevisedText != text {
		t.Error("RevisedText changed on mode none")
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.RequestCount())
	}
}

// TestEscalate_BoundaryIsPartial tests that exactly 30% failing still takes
// the partial path.
func TestEscalate_BoundaryIsPartial(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script("revised one", "revised two", "revised three")
	e := newTestEscalator(mock)

	// 3 of 10 segments failing: ratio exactly 0.30.
	text := strings.Repeat("x", 100)
	out, err := e.Escalate(context.Background(), text, segMetrics(10, 0, 4, 9), quality.DefaultThresholds(), "item-1")
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}

	if out.Mode != ModePartial {
		t.Errorf("Mode = %q, want %q at the 30%% boundary", out.Mode, ModePartial)
	}
	if out.FailingCount != 3 {
		t.Errorf("FailingCount = %d, want 3", out.FailingCount)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("requests = %d, want one per failing segment", mock.RequestCount())
	}
}

// TestEscalate_AboveBoundaryIsFull tests that over 30% failing triggers a
// single full rewrite.
func TestEscalate_AboveBoundaryIsFull(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "the full rewrite"
	e := newTestEscalator(mock)

	text := strings.Repeat("x", 100)
	out, err := e.Escalate(context.Background(), text, segMetrics(10, 0, 2, 4, 6), quality.DefaultThresholds(), "item-1")
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}

	if out.Mode != ModeFull {
		t.Errorf("Mode = %q, want %q", out.Mode, ModeFull)
	}
	if out.RevisedText != "the full rewrite" {
		t.Errorf("RevisedText = %q", out.RevisedText)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
}

// TestEscalate_SpliceAtOriginalOffsets tests that partial revisions are
// spliced from the unmodified source in one pass.
func TestEscalate_SpliceAtOriginalOffsets(t *testing.T) {
	mock := providers.NewMockClient()
	// Replacement longer than the original span; later offsets must not
	// drift.
	mock.Script(strings.Repeat("X", 15), "ZZZ")
	e := newTestEscalator(mock)

	// 10 contiguous 10-char segments, one letter per segment. 2 of 10
	// failing keeps the ratio under the full-rewrite boundary.
	var sb strings.Builder
	for _, r := range "ABCDEFGHIJ" {
		sb.WriteString(strings.Repeat(string(r), 10))
	}
	text := sb.String()
	m := segMetrics(10, 1, 3)

	out, err := e.Escalate(context.Background(), text, m, quality.DefaultThresholds(), "item-1")
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}

	if out.Mode != ModePartial {
		t.Fatalf("Mode = %q, want %q", out.Mode, ModePartial)
	}
	want := strings.Repeat("A", 10) + strings.Repeat("X", 15) +
		strings.Repeat("C", 10) + "ZZZ" + text[40:]
	if out.RevisedText != want {
		t.Errorf("RevisedText = %q, want %q", out.RevisedText, want)
	}
}

// TestEscalate_SkipsInvalidSpans tests that out-of-bounds spans keep the
// original text instead of failing.
func TestEscalate_SkipsInvalidSpans(t *testing.T) {
	mock := providers.NewMockClient()
	e := newTestEscalator(mock)

	text := "0123456789"
	m := &quality.Metrics{Segments: []quality.SegmentScore{
		{Index: 0, StartOffset: 0, EndOffset: 10, Correctness: 0.9, ContextAlignment: 0.9},
		{Index: 1, StartOffset: 5, EndOffset: 50, Correctness: 0.1, ContextAlignment: 0.9},
		{Index: 2, StartOffset: 0, EndOffset: 10, Correctness: 0.9, ContextAlignment: 0.9},
		{Index: 3, StartOffset: 0, EndOffset: 10, Correctness: 0.9, ContextAlignment: 0.9},
		{Index: 4, StartOffset: 0, EndOffset: 10, Correctness: 0.9, ContextAlignment: 0.9},
	}}

	out, err := e.Escalate(context.Background(), text, m, quality.DefaultThresholds(), "item-1")
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if out.RevisedText != text {
		t.Errorf("RevisedText = %q, want original preserved", out.RevisedText)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0 for an invalid span", mock.RequestCount())
	}
}

// TestEscalate_FailingByAlignment tests that low context alignment also
// marks a segment failing.
func TestEscalate_FailingByAlignment(t *testing.T) {
	m := &quality.Metrics{Segments: []quality.SegmentScore{
		{Index: 0, StartOffset: 0, EndOffset: 5, Correctness: 0.9, ContextAlignment: 0.1},
	}}

	failing := failingSegments(m, quality.DefaultThresholds())
	if len(failing) != 1 {
		t.Errorf("failing = %d, want 1", len(failing))
	}
}
