package quality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/providers"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEvaluator(mock *providers.MockClient) *Evaluator {
	registry := providers.NewRegistry()
	registry.SetLogger(quietLogger())
	registry.RegisterLLM("mock", mock)

	gw := gateway.New(gateway.Config{
		Registry:        registry,
		Recorder:        llmcall.NewRecorder(0),
		DefaultProvider: "mock",
		Logger:          quietLogger(),
	})
	return NewEvaluator(EvaluatorConfig{Gateway: gw, Model: "cheap-model", Logger: quietLogger()})
}

// passJSON builds a valid three-segment assessment response with uniform
// scores.
func passJSON(score float64, constraints bool, hallucinations int) string {
	return fmt.Sprintf(`{
		"segments": [
			{"start_offset": 0, "end_offset": 100, "clarity": %[1]v, "correctness": %[1]v, "completeness": %[1]v, "context_alignment": %[1]v, "issues": []},
			{"start_offset": 100, "end_offset": 200, "clarity": %[1]v, "correctness": %[1]v, "completeness": %[1]v, "context_alignment": %[1]v, "issues": []},
			{"start_offset": 200, "end_offset": 300, "clarity": %[1]v, "correctness": %[1]v, "completeness": %[1]v, "context_alignment": %[1]v, "issues": []}
		],
		"constraints_satisfied": %[2]v,
		"hallucination_count": %[3]d,
		"estimated_coverage": 0.9
	}`, score, constraints, hallucinations)
}

// TestEvaluate_CombinesPasses tests score averaging across the two passes.
func TestEvaluate_CombinesPasses(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script(passJSON(0.8, true, 0), passJSON(0.6, true, 0))

	e := newTestEvaluator(mock)
	m, err := e.Evaluate(context.Background(), "some document text", "item-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(m.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(m.Segments))
	}
	// Averaging is symmetric, so pass assignment order does not matter.
	if math.Abs(m.MeanCorrectness-0.7) > 1e-9 {
		t.Errorf("MeanCorrectness = %v, want 0.7", m.MeanCorrectness)
	}
	if !m.ConstraintsSatisfied {
		t.Error("ConstraintsSatisfied = false, want true")
	}
	if m.HallucinationCount != 0 {
		t.Errorf("HallucinationCount = %d, want 0", m.HallucinationCount)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("requests = %d, want exactly 2 passes", mock.RequestCount())
	}
}

// TestEvaluate_VarianceProxy tests the squared half-difference of the two
// passes' means.
func TestEvaluate_VarianceProxy(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script(passJSON(0.9, true, 0), passJSON(0.7, true, 0))

	e := newTestEvaluator(mock)
	m, err := e.Evaluate(context.Background(), "text", "item-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// ((0.9-0.7)/2)^2 = 0.01, order-independent.
	if math.Abs(m.VarCorrectness-0.01) > 1e-9 {
		t.Errorf("VarCorrectness = %v, want 0.01", m.VarCorrectness)
	}
	if math.Abs(m.VarCompleteness-0.01) > 1e-9 {
		t.Errorf("VarCompleteness = %v, want 0.01", m.VarCompleteness)
	}
}

// TestEvaluate_DocumentFlags tests the conjunction/max merge of document
// flags.
func TestEvaluate_DocumentFlags(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script(passJSON(0.9, true, 0), passJSON(0.9, false, 2))

	e := newTestEvaluator(mock)
	m, err := e.Evaluate(context.Background(), "text", "item-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if m.ConstraintsSatisfied {
		t.Error("ConstraintsSatisfied = true, want false (either pass failing fails both)")
	}
	if m.HallucinationCount != 2 {
		t.Errorf("HallucinationCount = %d, want 2 (max of passes)", m.HallucinationCount)
	}
}

// TestEvaluate_UnparseablePass tests that one unparseable pass yields a
// terminal EvalError.
func TestEvaluate_UnparseablePass(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script(passJSON(0.9, true, 0), "this is not json at all")

	e := newTestEvaluator(mock)
	_, err := e.Evaluate(context.Background(), "text", "item-1")
	if err == nil {
		t.Fatal("Evaluate() error = nil, want EvalError")
	}

	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("error type = %T, want *EvalError", err)
	}
}

// TestEvaluate_MissingSegments tests that a schema-valid but empty
// assessment fails.
func TestEvaluate_MissingSegments(t *testing.T) {
	mock := providers.NewMockClient()
	empty := `{"segments": [], "constraints_satisfied": true, "hallucination_count": 0, "estimated_coverage": 0.5}`
	mock.Script(empty, empty)

	e := newTestEvaluator(mock)
	_, err := e.Evaluate(context.Background(), "text", "item-1")

	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("error = %v, want *EvalError for empty segments", err)
	}
}

// TestEvaluate_TransportError tests that transport failures propagate
// without being wrapped as EvalError.
func TestEvaluate_TransportError(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true

	e := newTestEvaluator(mock)
	_, err := e.Evaluate(context.Background(), "text", "item-1")
	if err == nil {
		t.Fatal("Evaluate() error = nil, want transport error")
	}

	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		t.Errorf("transport failure surfaced as EvalError: %v", err)
	}
}
