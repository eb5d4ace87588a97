// Package convert produces the structured retrieval document that is the
// pipeline's final output.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/providers"
)

// PromptKeyConvert identifies conversion calls in the call records.
const PromptKeyConvert = "convert.document"

// Metadata describes the source document.
type Metadata struct {
	Title       string   `json:"title"`
	DocumentID  string   `json:"document_id"`
	SourceRef   string   `json:"source_ref,omitempty"`
	Language    string   `json:"language,omitempty"`
	DocType     string   `json:"doc_type,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	ConvertedAt string   `json:"converted_at"`
	Model       string   `json:"model"`
}

// Chunk is one retrieval unit of the converted document.
type Chunk struct {
	ID          string `json:"id"`
	Heading     string `json:"heading,omitempty"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Augmentation carries model-generated navigation aids.
type Augmentation struct {
	TableOfContents []string          `json:"table_of_contents,omitempty"`
	Summaries       map[string]string `json:"summaries,omitempty"`
}

// Result is the structured conversion output. Metadata and Chunks are
// mandatory; everything else is best-effort enrichment.
type Result struct {
	Metadata              Metadata          `json:"metadata"`
	Content               string            `json:"content,omitempty"`
	Chunks                []Chunk           `json:"chunks"`
	Augmentation          *Augmentation     `json:"augmentation,omitempty"`
	RetrievalHints        []string          `json:"retrieval_hints,omitempty"`
	SecurityFlags         []string          `json:"security_flags,omitempty"`
	EmbeddingPlaceholders map[string]string `json:"embedding_placeholders,omitempty"`
}

// Converter turns normalized document text into a Result via one LLM call.
type Converter struct {
	gw     *gateway.Gateway
	logger *slog.Logger
}

// Config configures a new Converter.
type Config struct {
	Gateway *gateway.Gateway
	Logger  *slog.Logger
}

// New creates a new Converter.
func New(cfg Config) *Converter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{gw: cfg.Gateway, logger: logger}
}

// Convert issues a single structured-output call on modelID and validates
// that the mandatory fields came back. Conversion failures are terminal for
// the work item; there is no retry here, the caller decides what a failed
// item means.
func (c *Converter) Convert(ctx context.Context, text, docID, sourceRef, modelID string) (*Result, error) {
	result, err := c.gw.Invoke(ctx, modelID, []providers.Message{
		{Role: "system", Content: convertSystemPrompt},
		{Role: "user", Content: text},
	}, gateway.CallOptions{
		ItemID:         docID,
		PromptKey:      PromptKeyConvert,
		Temperature:    0.1,
		ResponseFormat: &providers.ResponseFormat{Type: "json_schema", JSONSchema: convertSchema},
	})
	if err != nil {
		return nil, fmt.Errorf("conversion call: %w", err)
	}

	parsed, err := providers.ParseStructuredJSON(result.Content)
	if err != nil {
		return nil, fmt.Errorf("conversion response not parseable: %w", err)
	}
	if err := providers.ValidateStructuredJSON(convertSchema, parsed); err != nil {
		return nil, fmt.Errorf("conversion response failed schema validation: %w", err)
	}

	var out Result
	if err := json.Unmarshal(parsed, &out); err != nil {
		return nil, fmt.Errorf("conversion response decode: %w", err)
	}

	// Schema validation already requires these keys, but the mock path and
	// older models can return empty values that pass the schema.
	if out.Metadata.Title == "" && out.Metadata.DocumentID == "" {
		return nil, fmt.Errorf("conversion result missing metadata")
	}
	if len(out.Chunks) == 0 {
		return nil, fmt.Errorf("conversion result has no chunks")
	}

	out.Metadata.DocumentID = docID
	out.Metadata.SourceRef = sourceRef
	out.Metadata.Model = result.ModelUsed
	out.Metadata.ConvertedAt = time.Now().UTC().Format(time.RFC3339)

	c.logger.Debug("document converted",
		"doc_id", docID,
		"model", result.ModelUsed,
		"chunks", len(out.Chunks),
	)
	return &out, nil
}

const convertSystemPrompt = `Convert the following document into a
retrieval-optimized structured form. Produce:

- metadata: title, language, doc_type, and topical keywords.
- content: the full document as clean markdown.
- chunks: the document split into coherent retrieval units of roughly
  200-800 words, each with its character span in the input and a heading
  where one applies.
- augmentation: a table of contents plus a one-sentence summary per chunk,
  keyed by chunk id.
- retrieval_hints: likely user queries this document answers.
- security_flags: names of any secrets, credentials, or PII you noticed
  (empty list if none).

Do not invent content that is not in the document. Respond with JSON only,
matching the provided schema exactly.`

var convertSchema = json.RawMessage(`{
  "name": "retrieval_document",
  "strict": true,
  "schema": {
    "type": "object",
    "additionalProperties": false,
    "required": ["metadata", "chunks"],
    "properties": {
      "metadata": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string"},
          "language": {"type": "string"},
          "doc_type": {"type": "string"},
          "topics": {"type": "array", "items": {"type": "string"}}
        }
      },
      "content": {"type": "string"},
      "chunks": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "object",
          "required": ["id", "text", "start_offset", "end_offset"],
          "properties": {
            "id": {"type": "string"},
            "heading": {"type": "string"},
            "text": {"type": "string"},
            "start_offset": {"type": "integer", "minimum": 0},
            "end_offset": {"type": "integer", "minimum": 0}
          }
        }
      },
      "augmentation": {
        "type": "object",
        "properties": {
          "table_of_contents": {"type": "array", "items": {"type": "string"}},
          "summaries": {"type": "object", "additionalProperties": {"type": "string"}}
        }
      },
      "retrieval_hints": {"type": "array", "items": {"type": "string"}},
      "security_flags": {"type": "array", "items": {"type": "string"}},
      "embedding_placeholders": {"type": "object", "additionalProperties": {"type": "string"}}
    }
  }
}`)
