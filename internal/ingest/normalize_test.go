package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/providers"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNormalizer(mock *providers.MockClient) *Normalizer {
	registry := providers.NewRegistry()
	registry.SetLogger(quietLogger())
	registry.RegisterLLM("mock", mock)

	gw := gateway.New(gateway.Config{
		Registry:        registry,
		Recorder:        llmcall.NewRecorder(0),
		DefaultProvider: "mock",
		Logger:          quietLogger(),
	})
	return New(Config{Gateway: gw, Model: "cheap-model", Logger: quietLogger()})
}

// TestClean tests the cosmetic normalization steps.
func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bom strip", "\uFEFFhello", "hello"},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"trailing whitespace", "line one  \t\nline two", "line one\nline two"},
		{"blank collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"outer trim", "\n\n  text  \n\n", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestLooksNormalized tests the reformat-skip heuristic.
func TestLooksNormalized(t *testing.T) {
	if !looksNormalized("short text") {
		t.Error("short text should skip the reformat")
	}

	structured := "# Title\n\n" + strings.Repeat("A line of body text.\n", 40)
	if !looksNormalized(structured) {
		t.Error("headed text with sane lines should skip the reformat")
	}

	wall := strings.Repeat("word ", 200) // one 1000-char line, no headings
	if looksNormalized(wall) {
		t.Error("unstructured wall of text should trigger the reformat")
	}

	headedWall := "# Title\n" + strings.Repeat("word ", 200)
	if looksNormalized(headedWall) {
		t.Error("headings with a wall-of-text line should still reformat")
	}
}

// TestNormalize_SkipsStructuredText tests that structured input gets no
// LLM call.
func TestNormalize_SkipsStructuredText(t *testing.T) {
	mock := providers.NewMockClient()
	n := newTestNormalizer(mock)

	in := "# Title\r\n\r\nSome body.\r\n"
	got, applied := n.Normalize(context.Background(), in, "item-1")
	if applied {
		t.Error("applied = true, want cosmetic-only path")
	}
	if got != "# Title\n\nSome body." {
		t.Errorf("Normalize() = %q", got)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.RequestCount())
	}
}

// TestNormalize_ReformatsWallOfText tests the reformat path.
func TestNormalize_ReformatsWallOfText(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "# Reformatted\n\nTidy body."
	n := newTestNormalizer(mock)

	in := strings.Repeat("word ", 200)
	got, applied := n.Normalize(context.Background(), in, "item-1")
	if !applied {
		t.Error("applied = false, want reformat")
	}
	if got != "# Reformatted\n\nTidy body." {
		t.Errorf("Normalize() = %q", got)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
}

// TestNormalize_FallbackOnFailure tests that reformat failures degrade to
// the cleaned text instead of failing the item.
func TestNormalize_FallbackOnFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	n := newTestNormalizer(mock)

	in := strings.Repeat("word ", 200)
	got, applied := n.Normalize(context.Background(), in, "item-1")
	if applied {
		t.Error("applied = true after a failed reformat")
	}
	if got != Clean(in) {
		t.Errorf("Normalize() = %q, want cleaned fallback", got)
	}
}

// TestNormalize_FallbackOnEmptyReformat tests the empty-response guard.
func TestNormalize_FallbackOnEmptyReformat(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "   \n "
	n := newTestNormalizer(mock)

	in := strings.Repeat("word ", 200)
	got, applied := n.Normalize(context.Background(), in, "item-1")
	if applied {
		t.Error("applied = true for an empty reformat")
	}
	if got != Clean(in) {
		t.Errorf("Normalize() = %q, want cleaned fallback", got)
	}
}
