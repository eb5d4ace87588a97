package queue

import (
	"context"
	"time"
)

// stalledAfter is how long the run lock may sit with nothing processing and
// work pending before a status read treats the run as stuck. Long enough
// that no healthy scheduling gap can reach it.
const stalledAfter = 30 * time.Second

// Counts holds per-state item totals.
type Counts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// Snapshot is a point-in-time view of the queue.
type Snapshot struct {
	Running   bool      `json:"running"`
	Counts    Counts    `json:"counts"`
	Items     []Summary `json:"items"`
	Recovered bool      `json:"recovered,omitempty"` // stuck-state recovery fired
}

// GetStatus returns a snapshot of queue state. As a side effect it checks
// for the stuck state: run lock held, nothing actually processing, work
// still pending, and no scheduling progress for stalledAfter. That
// combination means the lock was taken but the loop never resumed; the
// lock is cleared and a fresh run is launched in the background with the
// failure path logged. The progress check keeps the recovery from firing
// on a live run observed mid-step. With no run active, repeated calls
// never mutate item state.
func (e *Engine) GetStatus(ctx context.Context) Snapshot {
	snap := e.snapshot()

	if snap.Running && snap.Counts.Processing == 0 && snap.Counts.Pending > 0 && e.stalled() {
		e.logger.Warn("stuck run detected, recovering",
			"pending", snap.Counts.Pending)
		e.running.Store(false)
		snap.Running = false
		snap.Recovered = true

		go func() {
			if err := e.StartRun(context.WithoutCancel(ctx)); err != nil {
				e.logger.Error("stuck-state restart failed", "error", err)
			}
		}()
	}

	return snap
}

// stalled reports whether the run loop has made no scheduling progress for
// stalledAfter. A zero progress stamp means no run was ever admitted.
func (e *Engine) stalled() bool {
	last := e.progress.Load()
	return last > 0 && time.Since(time.Unix(0, last)) > stalledAfter
}

func (e *Engine) snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		Running: e.running.Load(),
		Items:   make([]Summary, 0, len(e.items)),
	}
	for _, it := range e.items {
		switch it.Status {
		case StatusPending:
			snap.Counts.Pending++
		case StatusProcessing:
			snap.Counts.Processing++
		case StatusCompleted:
			snap.Counts.Completed++
		case StatusFailed:
			snap.Counts.Failed++
		}
		snap.Counts.Total++
		snap.Items = append(snap.Items, it.summary())
	}
	return snap
}
