package llmcall

import (
	"sync"
)

// DefaultRetention is how many call records the recorder keeps.
const DefaultRetention = 200

// Recorder keeps a rolling window of LLM call records plus per-model call
// counters. State is process-lifetime only; there is no persistence layer.
type Recorder struct {
	mu        sync.RWMutex
	calls     []Call // Newest last; trimmed to retention
	retention int
	byModel   map[string]int
}

// NewRecorder creates a recorder retaining the last n calls.
// n <= 0 uses DefaultRetention.
func NewRecorder(n int) *Recorder {
	if n <= 0 {
		n = DefaultRetention
	}
	return &Recorder{
		retention: n,
		byModel:   make(map[string]int),
	}
}

// Record captures a call record.
func (r *Recorder) Record(call *Call) {
	if call == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byModel[call.Model]++
	r.calls = append(r.calls, *call)
	if len(r.calls) > r.retention {
		r.calls = r.calls[len(r.calls)-r.retention:]
	}
}

// Recent returns up to limit most recent calls, newest first.
// limit <= 0 returns all retained calls.
func (r *Recorder) Recent(limit int) []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.calls)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Call, 0, n)
	for i := len(r.calls) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.calls[i])
	}
	return out
}

// CountByModel returns per-model call counts since process start.
// Counters are not trimmed with the rolling window.
func (r *Recorder) CountByModel() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.byModel))
	for model, count := range r.byModel {
		out[model] = count
	}
	return out
}

// TotalCalls returns the total number of recorded calls since process start.
func (r *Recorder) TotalCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, count := range r.byModel {
		total += count
	}
	return total
}
