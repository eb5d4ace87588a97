package quality

import "encoding/json"

// selfAssessSystemPrompt instructs the model to grade its input document.
const selfAssessSystemPrompt = `You are a strict document quality assessor.
Split the document into logical segments (sections, or paragraph groups for
unstructured text) and score each segment on four axes from 0.0 to 1.0:

- clarity: is the segment readable and unambiguous?
- correctness: are factual statements accurate and internally consistent?
- completeness: does the segment cover its topic without obvious gaps?
- context_alignment: does the segment fit the document's overall subject?

Report each segment's character span in the original document as
start_offset/end_offset, and list concrete issues per segment (empty list if
none). Also report document-level flags:

- constraints_satisfied: false if the document violates basic structural
  expectations (truncated, garbled, mixed unrelated content).
- hallucination_count: number of statements that appear fabricated.
- estimated_coverage: fraction of the source material represented, 0.0-1.0.

Respond with JSON only, matching the provided schema exactly.`

// selfAssessSchema is the canonical structured-output schema for one
// assessment pass, in the {"name","strict","schema"} wrapper both providers
// understand.
var selfAssessSchema = json.RawMessage(`{
  "name": "self_assessment",
  "strict": true,
  "schema": {
    "type": "object",
    "additionalProperties": false,
    "required": ["segments", "constraints_satisfied", "hallucination_count", "estimated_coverage"],
    "properties": {
      "segments": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "object",
          "additionalProperties": false,
          "required": ["start_offset", "end_offset", "clarity", "correctness", "completeness", "context_alignment", "issues"],
          "properties": {
            "start_offset": {"type": "integer", "minimum": 0},
            "end_offset": {"type": "integer", "minimum": 0},
            "clarity": {"type": "number", "minimum": 0, "maximum": 1},
            "correctness": {"type": "number", "minimum": 0, "maximum": 1},
            "completeness": {"type": "number", "minimum": 0, "maximum": 1},
            "context_alignment": {"type": "number", "minimum": 0, "maximum": 1},
            "issues": {"type": "array", "items": {"type": "string"}}
          }
        }
      },
      "constraints_satisfied": {"type": "boolean"},
      "hallucination_count": {"type": "integer", "minimum": 0},
      "estimated_coverage": {"type": "number", "minimum": 0, "maximum": 1}
    }
  }
}`)

// passResponse is the wire shape of one assessment pass.
type passResponse struct {
	Segments []struct {
		StartOffset      int      `json:"start_offset"`
		EndOffset        int      `json:"end_offset"`
		Clarity          float64  `json:"clarity"`
		Correctness      float64  `json:"correctness"`
		Completeness     float64  `json:"completeness"`
		ContextAlignment float64  `json:"context_alignment"`
		Issues           []string `json:"issues"`
	} `json:"segments"`
	ConstraintsSatisfied bool    `json:"constraints_satisfied"`
	HallucinationCount   int     `json:"hallucination_count"`
	EstimatedCoverage    float64 `json:"estimated_coverage"`
}
