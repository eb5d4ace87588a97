package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/awilliams/curator/internal/convert"
	"github.com/awilliams/curator/internal/escalate"
	"github.com/awilliams/curator/internal/ingest"
	"github.com/awilliams/curator/internal/quality"
)

// Model tier labels recorded in gating records.
const (
	TierCheap  = "cheap"
	TierStrong = "strong"
)

// Pipeline runs one document through normalize, evaluate, gate, escalate,
// and convert. It holds no mutable state; all per-item state lives in the
// outcome value threaded between stages.
type Pipeline struct {
	normalizer *ingest.Normalizer
	evaluator  *quality.Evaluator
	escalator  *escalate.Escalator
	converter  *convert.Converter

	thresholds  quality.Thresholds
	cheapModel  string
	strongModel string
	logger      *slog.Logger
}

// PipelineConfig configures a new Pipeline.
type PipelineConfig struct {
	Normalizer *ingest.Normalizer
	Evaluator  *quality.Evaluator
	Escalator  *escalate.Escalator
	Converter  *convert.Converter

	Thresholds  quality.Thresholds
	CheapModel  string
	StrongModel string
	Logger      *slog.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		normalizer:  cfg.Normalizer,
		evaluator:   cfg.Evaluator,
		escalator:   cfg.Escalator,
		converter:   cfg.Converter,
		thresholds:  cfg.Thresholds,
		cheapModel:  cfg.CheapModel,
		strongModel: cfg.StrongModel,
		logger:      logger,
	}
}

// outcome accumulates one item's pipeline results. The engine applies it to
// the item after the pipeline returns; stages never reach into the item.
type outcome struct {
	text              string
	formattingApplied bool
	gating            *GatingRecord
	result            *convert.Result
	err               error
}

// process runs the full stage sequence for one document. The returned
// outcome always carries whatever was produced before a failure, so the
// engine can record partial gating state on failed items.
func (p *Pipeline) process(ctx context.Context, id, sourceRef, text string) outcome {
	var out outcome

	// Normalization happens exactly once per item, before evaluation.
	out.text, out.formattingApplied = p.normalizer.Normalize(ctx, text, id)

	metrics, err := p.evaluator.Evaluate(ctx, out.text, id)
	if err != nil {
		var evalErr *quality.EvalError
		if errors.As(err, &evalErr) {
			// Unparseable self-assessment: fail toward the strong path.
			// The gate is bypassed; the document gets a full rewrite and
			// a strong-tier conversion.
			p.logger.Info("evaluation failed, routing to strong tier",
				"item_id", id, "error", err)
			return p.strongFallback(ctx, id, sourceRef, out)
		}
		out.err = fmt.Errorf("evaluation: %w", err)
		return out
	}

	verdict := quality.Decide(metrics, p.thresholds)
	out.gating = &GatingRecord{
		ModelTier:      TierCheap,
		Mode:           escalate.ModeNone,
		CompositeScore: verdict.Composite,
		Reason:         verdict.Reason,
	}

	modelID := p.cheapModel
	if verdict.Escalate {
		esc, err := p.escalator.Escalate(ctx, out.text, metrics, p.thresholds, id)
		if err != nil {
			out.err = fmt.Errorf("escalation: %w", err)
			return out
		}
		out.text = esc.RevisedText
		out.gating.Escalated = true
		out.gating.Mode = esc.Mode
		out.gating.ModelTier = TierStrong
		modelID = p.strongModel
	}

	result, err := p.converter.Convert(ctx, out.text, id, sourceRef, modelID)
	if err != nil {
		out.err = fmt.Errorf("conversion: %w", err)
		return out
	}
	out.result = result
	return out
}

// strongFallback handles the evaluation-failure path: full rewrite plus
// strong-tier conversion, no gate verdict.
func (p *Pipeline) strongFallback(ctx context.Context, id, sourceRef string, out outcome) outcome {
	out.gating = &GatingRecord{
		ModelTier: TierStrong,
		Escalated: true,
		Mode:      escalate.ModeFull,
		Reason:    quality.ReasonSelfEvalFailed,
	}

	revised, err := p.escalator.FullRewrite(ctx, out.text, id)
	if err != nil {
		out.err = fmt.Errorf("fallback rewrite: %w", err)
		return out
	}
	out.text = revised

	result, err := p.converter.Convert(ctx, out.text, id, sourceRef, p.strongModel)
	if err != nil {
		out.err = fmt.Errorf("conversion: %w", err)
		return out
	}
	out.result = result
	return out
}
