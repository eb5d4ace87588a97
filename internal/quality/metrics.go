// Package quality implements the self-assessment evaluator and the accept/
// escalate gate that decide which model tier converts a document.
package quality

import "strings"

// SegmentScore holds per-segment quality scores in [0,1] plus the segment's
// character span in the assessed document and any issues the model reported.
type SegmentScore struct {
	Index            int      `json:"index"`
	StartOffset      int      `json:"start_offset"`
	EndOffset        int      `json:"end_offset"`
	Clarity          float64  `json:"clarity"`
	Correctness      float64  `json:"correctness"`
	Completeness     float64  `json:"completeness"`
	ContextAlignment float64  `json:"context_alignment"`
	Issues           []string `json:"issues,omitempty"`
}

// StructureStats captures structural complexity signals used by the gate's
// pass-probability heuristic.
type StructureStats struct {
	Chars      int
	Headings   int
	TableRows  int
	CodeFences int
}

// Metrics is the combined result of two independent evaluation passes.
type Metrics struct {
	// Segments carries per-segment scores averaged across the two passes.
	Segments []SegmentScore

	// Document-level flags. ConstraintsSatisfied is the conjunction of both
	// passes; HallucinationCount is the maximum either pass reported.
	ConstraintsSatisfied bool
	HallucinationCount   int
	EstimatedCoverage    float64

	// Simple means per score across segments.
	MeanClarity          float64
	MeanCorrectness      float64
	MeanCompleteness     float64
	MeanContextAlignment float64

	// Inter-pass variance proxy: squared half-difference between the two
	// passes' document means. A cheap two-sample uncertainty heuristic, not
	// a calibrated confidence estimate.
	VarCorrectness  float64
	VarCompleteness float64

	Structure StructureStats
}

// mean returns the arithmetic mean of vals, or 0 for an empty slice.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// varianceProxy is the squared half-difference of two observations.
func varianceProxy(a, b float64) float64 {
	d := (a - b) / 2
	return d * d
}

// AnalyzeStructure counts structural complexity markers in a document.
func AnalyzeStructure(text string) StructureStats {
	stats := StructureStats{Chars: len(text)}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			stats.Headings++
		case strings.HasPrefix(trimmed, "|"):
			stats.TableRows++
		case strings.HasPrefix(trimmed, "```"):
			stats.CodeFences++
		}
	}
	return stats
}
