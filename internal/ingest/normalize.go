// Package ingest prepares extracted document text for the pipeline.
package ingest

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/providers"
)

// PromptKeyNormalize identifies normalization calls in the call records.
const PromptKeyNormalize = "ingest.normalize"

// Normalizer cleans document text, optionally reformatting it to markdown
// on the cheap model tier.
type Normalizer struct {
	gw     *gateway.Gateway
	model  string
	logger *slog.Logger
}

// Config configures a new Normalizer.
type Config struct {
	Gateway *gateway.Gateway
	Model   string // Cheap-tier model id
	Logger  *slog.Logger
}

// New creates a new Normalizer.
func New(cfg Config) *Normalizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{gw: cfg.Gateway, model: cfg.Model, logger: logger}
}

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// Clean applies cosmetic normalization only: BOM strip, CRLF to LF,
// trailing-whitespace trim, blank-line collapse.
func Clean(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Normalize returns pipeline-ready text and whether an LLM reformat was
// applied. Text that already looks structured gets cosmetic cleanup only.
// If the reformat call fails, the cleaned text is used as a fallback rather
// than failing the item over a cosmetic step.
func (n *Normalizer) Normalize(ctx context.Context, text, itemID string) (string, bool) {
	cleaned := Clean(text)
	if looksNormalized(cleaned) {
		return cleaned, false
	}

	result, err := n.gw.Invoke(ctx, n.model, []providers.Message{
		{Role: "system", Content: normalizePrompt},
		{Role: "user", Content: cleaned},
	}, gateway.CallOptions{
		ItemID:      itemID,
		PromptKey:   PromptKeyNormalize,
		Temperature: 0.1,
	})
	if err != nil {
		n.logger.Warn("normalization reformat failed, using cleaned text",
			"item_id", itemID, "error", err)
		return cleaned, false
	}

	formatted := strings.TrimSpace(result.Content)
	if formatted == "" {
		n.logger.Warn("normalization reformat returned empty text, using cleaned text",
			"item_id", itemID)
		return cleaned, false
	}
	return formatted, true
}

// looksNormalized is a cheap heuristic: markdown headings present, or short
// documents with reasonable line structure, skip the reformat call.
func looksNormalized(text string) bool {
	if len(text) < 400 {
		return true
	}

	lines := strings.Split(text, "\n")
	headings := 0
	longLines := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			headings++
		}
		if len(line) > 500 {
			longLines++
		}
	}

	// Headings and no wall-of-text lines is good enough.
	return headings > 0 && longLines == 0
}

const normalizePrompt = `Reformat the following extracted document text as
clean markdown. Add headings where the structure implies them, rebuild lists
and tables, and fix line wrapping. Preserve every piece of content; do not
summarize, reorder, or add anything. Return only the reformatted document.`
