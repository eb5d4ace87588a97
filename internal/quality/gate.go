package quality

// Reason tags why the gate accepted or escalated.
type Reason string

const (
	ReasonPassed              Reason = "passed"
	ReasonConstraintsFailed   Reason = "constraints_failed"
	ReasonHardFail            Reason = "hard_fail"
	ReasonLowComposite        Reason = "low_composite"
	ReasonMultiSoftFail       Reason = "multi_soft_fail"
	ReasonUncertainBorderline Reason = "uncertain_borderline"
	ReasonModelPredictedFail  Reason = "model_predicted_fail"

	// ReasonSelfEvalFailed is recorded by the pipeline when the evaluator
	// itself failed and the gate was bypassed entirely.
	ReasonSelfEvalFailed Reason = "self_eval_failed"
)

// Thresholds configures the gate. All values are externally configurable;
// DefaultThresholds ships the defaults.
type Thresholds struct {
	CompositeMin        float64 `mapstructure:"composite_min" yaml:"composite_min"`
	BorderlineComposite float64 `mapstructure:"borderline_composite" yaml:"borderline_composite"`

	CorrectnessMin      float64 `mapstructure:"correctness_min" yaml:"correctness_min"`
	CompletenessMin     float64 `mapstructure:"completeness_min" yaml:"completeness_min"`
	ContextAlignmentMin float64 `mapstructure:"context_alignment_min" yaml:"context_alignment_min"`

	SoftFailEscalateCount int     `mapstructure:"soft_fail_escalate_count" yaml:"soft_fail_escalate_count"`
	VarianceCeiling       float64 `mapstructure:"variance_ceiling" yaml:"variance_ceiling"`
	PassProbabilityFloor  float64 `mapstructure:"pass_probability_floor" yaml:"pass_probability_floor"`
}

// DefaultThresholds returns the shipped gate defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CompositeMin:          0.70,
		BorderlineComposite:   0.80,
		CorrectnessMin:        0.70,
		CompletenessMin:       0.65,
		ContextAlignmentMin:   0.65,
		SoftFailEscalateCount: 2,
		VarianceCeiling:       0.01,
		PassProbabilityFloor:  0.50,
	}
}

// Verdict is the gate's decision.
type Verdict struct {
	Escalate        bool    `json:"escalate"`
	Reason          Reason  `json:"reason"`
	Composite       float64 `json:"composite"`
	PassProbability float64 `json:"pass_probability"`
}

// Composite score weights. Constraints and correctness are weighted highest
// because factual fidelity dominates downstream retrieval quality.
const (
	weightClarity          = 0.15
	weightCorrectness      = 0.25
	weightCompleteness     = 0.20
	weightConstraints      = 0.25
	weightContextAlignment = 0.15
)

// Decide maps metrics and thresholds to an accept/escalate verdict.
// It is a pure function: same inputs always yield the same verdict.
// Rules are evaluated top to bottom; the first match wins.
func Decide(m *Metrics, t Thresholds) Verdict {
	constraints := 0.0
	if m.ConstraintsSatisfied {
		constraints = 1.0
	}
	composite := weightClarity*m.MeanClarity +
		weightCorrectness*m.MeanCorrectness +
		weightCompleteness*m.MeanCompleteness +
		weightConstraints*constraints +
		weightContextAlignment*m.MeanContextAlignment

	prob := passProbability(composite, m.Structure)

	v := Verdict{Composite: composite, PassProbability: prob}

	// Rule 1: structural constraints violated.
	if !m.ConstraintsSatisfied {
		v.Escalate = true
		v.Reason = ReasonConstraintsFailed
		return v
	}

	// Rule 2: hard-fail conditions.
	if m.HallucinationCount > 0 {
		v.Escalate = true
		v.Reason = ReasonHardFail
		return v
	}

	// Rule 3: composite below floor.
	if composite < t.CompositeMin {
		v.Escalate = true
		v.Reason = ReasonLowComposite
		return v
	}

	// Rule 4: multiple soft fails.
	softFails := 0
	if m.MeanCorrectness < t.CorrectnessMin {
		softFails++
	}
	if m.MeanCompleteness < t.CompletenessMin {
		softFails++
	}
	if m.MeanContextAlignment < t.ContextAlignmentMin {
		softFails++
	}
	if softFails >= t.SoftFailEscalateCount {
		v.Escalate = true
		v.Reason = ReasonMultiSoftFail
		return v
	}

	// Rule 5: high inter-pass disagreement, but only when the score is
	// already marginal. Confidently-good documents that merely scored
	// slightly differently between passes are not penalized.
	if (m.VarCorrectness > t.VarianceCeiling || m.VarCompleteness > t.VarianceCeiling) &&
		composite < t.BorderlineComposite {
		v.Escalate = true
		v.Reason = ReasonUncertainBorderline
		return v
	}

	// Rule 6: heuristic pass probability below floor.
	if prob < t.PassProbabilityFloor {
		v.Escalate = true
		v.Reason = ReasonModelPredictedFail
		return v
	}

	v.Reason = ReasonPassed
	return v
}

// passProbability estimates the chance the cheap tier produces an acceptable
// conversion, penalizing structural complexity (headings/tables/code density)
// and document length.
func passProbability(composite float64, s StructureStats) float64 {
	densityPerKB := 0.0
	if s.Chars > 0 {
		markers := float64(s.Headings + s.TableRows + s.CodeFences)
		densityPerKB = markers / (float64(s.Chars) / 1024)
	}

	densityPenalty := 0.15 * clamp01(densityPerKB/10)
	lengthPenalty := 0.10 * clamp01(float64(s.Chars)/40000)

	return clamp01(composite - densityPenalty - lengthPenalty)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
