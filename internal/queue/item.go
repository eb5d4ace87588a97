// Package queue implements the work item model and the batch-processing
// engine that drives documents through the conversion pipeline.
package queue

import (
	"errors"
	"time"

	"github.com/awilliams/curator/internal/convert"
	"github.com/awilliams/curator/internal/escalate"
	"github.com/awilliams/curator/internal/quality"
)

// Status is a work item's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Sentinel errors for the control surface.
var (
	ErrAlreadyRunning = errors.New("a run is already in progress")
	ErrRunInFlight    = errors.New("operation not allowed while a run is in flight")
	ErrItemProcessing = errors.New("item is currently processing")
	ErrNotCompleted   = errors.New("item is not completed")
	ErrNotFound       = errors.New("item not found")
)

// ItemMetrics summarizes one item's pipeline run.
type ItemMetrics struct {
	DurationMs        int64 `json:"duration_ms"`
	ChunkCount        int   `json:"chunk_count"`
	SummaryCount      int   `json:"summary_count"`
	FormattingApplied bool  `json:"formatting_applied"`
}

// GatingRecord captures the gate/escalation outcome for an item.
type GatingRecord struct {
	ModelTier      string         `json:"model_tier"` // "cheap" or "strong"
	Escalated      bool           `json:"escalated"`
	Mode           escalate.Mode  `json:"mode"`
	CompositeScore float64        `json:"composite_score"`
	Reason         quality.Reason `json:"reason"`
}

// Item is one document's processing record. The engine mutates items in
// place; no other component writes to them. Concurrent mutation only occurs
// for distinct items within a batch, so per-item fields need no locking.
type Item struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`

	// Text holds the normalized document. It is replaced with the revised
	// variant when escalation rewrites the document.
	Text string `json:"-"`

	Status      Status     `json:"status"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Result  *convert.Result `json:"-"`
	Error   string          `json:"error,omitempty"`
	Metrics *ItemMetrics    `json:"metrics,omitempty"`
	Gating  *GatingRecord   `json:"gating,omitempty"`
}

// Summary is the per-item view returned by status queries.
type Summary struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Status      Status        `json:"status"`
	EnqueuedAt  time.Time     `json:"enqueued_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	Metrics     *ItemMetrics  `json:"metrics,omitempty"`
	Gating      *GatingRecord `json:"gating,omitempty"`
}

func (it *Item) summary() Summary {
	return Summary{
		ID:          it.ID,
		Filename:    it.Filename,
		Status:      it.Status,
		EnqueuedAt:  it.EnqueuedAt,
		StartedAt:   it.StartedAt,
		CompletedAt: it.CompletedAt,
		Error:       it.Error,
		Metrics:     it.Metrics,
		Gating:      it.Gating,
	}
}
