// Package escalate re-processes documents on the strong model tier, either
// as a full-document rewrite or as per-segment revisions spliced back into
// the original.
package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/providers"
	"github.com/awilliams/curator/internal/quality"
)

// Prompt keys for call records.
const (
	PromptKeyFullRewrite   = "escalate.full_rewrite"
	PromptKeySegmentRevise = "escalate.segment_revise"
)

// Mode identifies the escalation strategy chosen.
type Mode string

const (
	ModeNone    Mode = "none"
	ModePartial Mode = "partial"
	ModeFull    Mode = "full"
)

// fullRewriteRatio is the failing-segment share above which the whole
// document is rewritten. The boundary is inclusive: exactly this ratio still
// takes the partial path.
const fullRewriteRatio = 0.30

// Outcome is the result of an escalation.
type Outcome struct {
	Mode         Mode
	RevisedText  string
	FailingCount int
	TotalCount   int
}

// Escalator performs strong-tier rewrites.
type Escalator struct {
	gw     *gateway.Gateway
	model  string
	logger *slog.Logger
}

// Config configures a new Escalator.
type Config struct {
	Gateway *gateway.Gateway
	Model   string // Strong-tier model id
	Logger  *slog.Logger
}

// New creates a new Escalator.
func New(cfg Config) *Escalator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Escalator{
		gw:     cfg.Gateway,
		model:  cfg.Model,
		logger: logger,
	}
}

// Escalate chooses between a full rewrite and per-segment revision based on
// the failing-segment ratio. Failing segments are those scoring below the
// correctness or context-alignment minimum. Zero failing segments yields
// mode none with the text unchanged; the gate should not send such a
// document here, but the case is handled without error.
func (e *Escalator) Escalate(ctx context.Context, text string, m *quality.Metrics, t quality.Thresholds, itemID string) (*Outcome, error) {
	failing := failingSegments(m, t)
	total := len(m.Segments)

	out := &Outcome{
		FailingCount: len(failing),
		TotalCount:   total,
	}

	if len(failing) == 0 {
		out.Mode = ModeNone
		out.RevisedText = text
		return out, nil
	}

	ratio := float64(len(failing)) / float64(total)
	if ratio > fullRewriteRatio {
		revised, err := e.FullRewrite(ctx, text, itemID)
		if err != nil {
			return nil, err
		}
		out.Mode = ModeFull
		out.RevisedText = revised
		return out, nil
	}

	revised, err := e.partialRewrite(ctx, text, failing, itemID)
	if err != nil {
		return nil, err
	}
	out.Mode = ModePartial
	out.RevisedText = revised
	return out, nil
}

// FullRewrite requests a complete strong-tier rewrite preserving structure
// and factual content. Also used directly by the pipeline when evaluation
// itself failed.
func (e *Escalator) FullRewrite(ctx context.Context, text, itemID string) (string, error) {
	result, err := e.gw.Invoke(ctx, e.model, []providers.Message{
		{Role: "system", Content: fullRewritePrompt},
		{Role: "user", Content: text},
	}, gateway.CallOptions{
		ItemID:      itemID,
		PromptKey:   PromptKeyFullRewrite,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("full rewrite: %w", err)
	}

	revised := strings.TrimSpace(result.Content)
	if revised == "" {
		return "", fmt.Errorf("full rewrite returned empty document")
	}
	return revised, nil
}

// partialRewrite revises each failing segment independently and reassembles
// the document once from span/replacement tuples computed against the
// unmodified source. Replacements are never applied in place, so earlier
// revisions cannot shift later segments' offsets.
func (e *Escalator) partialRewrite(ctx context.Context, text string, failing []quality.SegmentScore, itemID string) (string, error) {
	// Stable order by original offset.
	sort.Slice(failing, func(i, j int) bool {
		return failing[i].StartOffset < failing[j].StartOffset
	})

	type span struct {
		start, end  int
		replacement string
	}
	spans := make([]span, 0, len(failing))

	prevEnd := 0
	for _, seg := range failing {
		if seg.StartOffset < prevEnd || seg.EndOffset <= seg.StartOffset || seg.EndOffset > len(text) {
			// Overlapping or out-of-bounds span from the assessment;
			// keep the original text for this segment.
			e.logger.Warn("skipping segment with invalid span",
				"item_id", itemID,
				"start", seg.StartOffset,
				"end", seg.EndOffset,
			)
			continue
		}

		original := text[seg.StartOffset:seg.EndOffset]
		revised, err := e.reviseSegment(ctx, original, seg.Issues, itemID)
		if err != nil {
			return "", err
		}

		spans = append(spans, span{start: seg.StartOffset, end: seg.EndOffset, replacement: revised})
		prevEnd = seg.EndOffset
	}

	// Single reassembly pass.
	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		b.WriteString(text[cursor:s.start])
		b.WriteString(s.replacement)
		cursor = s.end
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

// reviseSegment rewrites one segment, constrained to its reported issues.
func (e *Escalator) reviseSegment(ctx context.Context, segment string, issues []string, itemID string) (string, error) {
	issueList := "- none reported"
	if len(issues) > 0 {
		issueList = "- " + strings.Join(issues, "\n- ")
	}

	prompt := fmt.Sprintf("%s\n\nReported issues:\n%s\n\nSegment:\n%s",
		segmentRevisePrompt, issueList, segment)

	result, err := e.gw.Invoke(ctx, e.model, []providers.Message{
		{Role: "user", Content: prompt},
	}, gateway.CallOptions{
		ItemID:      itemID,
		PromptKey:   PromptKeySegmentRevise,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("segment revision: %w", err)
	}

	revised := strings.TrimSpace(result.Content)
	if revised == "" {
		// An empty revision would silently delete content; keep the original.
		return segment, nil
	}
	return revised, nil
}

// failingSegments returns segments below the correctness or
// context-alignment minimum.
func failingSegments(m *quality.Metrics, t quality.Thresholds) []quality.SegmentScore {
	var out []quality.SegmentScore
	for _, seg := range m.Segments {
		if seg.Correctness < t.CorrectnessMin || seg.ContextAlignment < t.ContextAlignmentMin {
			out = append(out, seg)
		}
	}
	return out
}

const fullRewritePrompt = `Rewrite the following document completely.
Preserve its structure (headings, lists, tables, code blocks) and all
factual content. Fix unclear wording, remove fabricated statements, and
fill obvious gaps from context. Return only the rewritten document.`

const segmentRevisePrompt = `Revise the following document segment.
Address only the reported issues; preserve meaning, tone, and formatting.
Return only the revised segment with no commentary.`
