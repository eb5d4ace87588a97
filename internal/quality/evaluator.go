package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/providers"
)

// PromptKeySelfAssess identifies evaluator calls in the call records.
const PromptKeySelfAssess = "quality.self_assess"

// EvalError is a terminal evaluation failure: a pass's response did not
// parse or did not match the assessment schema. It is deliberately not
// retried — an unparseable self-assessment is itself evidence the document
// needs the strongest path.
type EvalError struct {
	Pass int
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("self-assessment pass %d failed: %v", e.Pass, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Evaluator scores candidate documents via two independent cheap-tier
// self-assessment calls.
type Evaluator struct {
	gw     *gateway.Gateway
	model  string
	logger *slog.Logger
}

// EvaluatorConfig configures a new Evaluator.
type EvaluatorConfig struct {
	Gateway *gateway.Gateway
	Model   string // Cheap-tier model id
	Logger  *slog.Logger
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		gw:     cfg.Gateway,
		model:  cfg.Model,
		logger: logger,
	}
}

// Evaluate runs two independent assessment passes over text and combines
// them into Metrics. The passes are issued concurrently; they have no
// ordering dependency. A transport error propagates as-is; a parse or
// schema failure on either pass returns a terminal *EvalError.
func (e *Evaluator) Evaluate(ctx context.Context, text, itemID string) (*Metrics, error) {
	passes := make([]*passResponse, 2)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			pass, err := e.runPass(gctx, text, itemID, i+1)
			if err != nil {
				return err
			}
			passes[i] = pass
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return combine(passes[0], passes[1], AnalyzeStructure(text)), nil
}

// runPass issues one self-assessment call and parses the response.
func (e *Evaluator) runPass(ctx context.Context, text, itemID string, pass int) (*passResponse, error) {
	result, err := e.gw.Invoke(ctx, e.model, []providers.Message{
		{Role: "system", Content: selfAssessSystemPrompt},
		{Role: "user", Content: text},
	}, gateway.CallOptions{
		ItemID:         itemID,
		PromptKey:      PromptKeySelfAssess,
		Temperature:    0.2,
		ResponseFormat: &providers.ResponseFormat{Type: "json_schema", JSONSchema: selfAssessSchema},
	})
	if err != nil {
		return nil, fmt.Errorf("assessment pass %d: %w", pass, err)
	}

	parsed, err := providers.ParseStructuredJSON(result.Content)
	if err != nil {
		return nil, &EvalError{Pass: pass, Err: err}
	}
	if err := providers.ValidateStructuredJSON(selfAssessSchema, parsed); err != nil {
		return nil, &EvalError{Pass: pass, Err: err}
	}

	var resp passResponse
	if err := json.Unmarshal(parsed, &resp); err != nil {
		return nil, &EvalError{Pass: pass, Err: err}
	}
	if len(resp.Segments) == 0 {
		return nil, &EvalError{Pass: pass, Err: fmt.Errorf("no segments in assessment")}
	}

	return &resp, nil
}

// combine merges two assessment passes. Segment scores are averaged where
// both passes produced a segment at the same index; spans and issues come
// from the first pass, whose segmentation anchors the escalator.
func combine(p1, p2 *passResponse, structure StructureStats) *Metrics {
	m := &Metrics{
		ConstraintsSatisfied: p1.ConstraintsSatisfied && p2.ConstraintsSatisfied,
		EstimatedCoverage:    (p1.EstimatedCoverage + p2.EstimatedCoverage) / 2,
		HallucinationCount:   p1.HallucinationCount,
		Structure:            structure,
	}
	if p2.HallucinationCount > m.HallucinationCount {
		m.HallucinationCount = p2.HallucinationCount
	}

	var clarity, correctness, completeness, alignment []float64
	for i, s1 := range p1.Segments {
		seg := SegmentScore{
			Index:            i,
			StartOffset:      s1.StartOffset,
			EndOffset:        s1.EndOffset,
			Clarity:          s1.Clarity,
			Correctness:      s1.Correctness,
			Completeness:     s1.Completeness,
			ContextAlignment: s1.ContextAlignment,
			Issues:           s1.Issues,
		}
		if i < len(p2.Segments) {
			s2 := p2.Segments[i]
			seg.Clarity = (s1.Clarity + s2.Clarity) / 2
			seg.Correctness = (s1.Correctness + s2.Correctness) / 2
			seg.Completeness = (s1.Completeness + s2.Completeness) / 2
			seg.ContextAlignment = (s1.ContextAlignment + s2.ContextAlignment) / 2
			seg.Issues = append(seg.Issues, s2.Issues...)
		}
		m.Segments = append(m.Segments, seg)

		clarity = append(clarity, seg.Clarity)
		correctness = append(correctness, seg.Correctness)
		completeness = append(completeness, seg.Completeness)
		alignment = append(alignment, seg.ContextAlignment)
	}

	m.MeanClarity = mean(clarity)
	m.MeanCorrectness = mean(correctness)
	m.MeanCompleteness = mean(completeness)
	m.MeanContextAlignment = mean(alignment)

	m.VarCorrectness = varianceProxy(passMean(p1, scoreCorrectness), passMean(p2, scoreCorrectness))
	m.VarCompleteness = varianceProxy(passMean(p1, scoreCompleteness), passMean(p2, scoreCompleteness))

	return m
}

type scoreKind int

const (
	scoreCorrectness scoreKind = iota
	scoreCompleteness
)

// passMean computes one pass's document mean for a score axis.
func passMean(p *passResponse, kind scoreKind) float64 {
	vals := make([]float64, 0, len(p.Segments))
	for _, s := range p.Segments {
		switch kind {
		case scoreCorrectness:
			vals = append(vals, s.Correctness)
		case scoreCompleteness:
			vals = append(vals, s.Completeness)
		}
	}
	return mean(vals)
}
