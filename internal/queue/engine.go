package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/awilliams/curator/internal/convert"
)

// Engine owns the work item collection and runs the batch-processing loop.
// At most one run executes at a time, enforced by an atomic run lock.
type Engine struct {
	mu    sync.RWMutex
	items []*Item // insertion order

	running atomic.Bool // run lock
	cancel  atomic.Bool

	// progress holds the unix-nano time of the run loop's last scheduling
	// step. Stuck-state detection only fires once this is stale, so a
	// status read landing in the instant between a batch finishing and the
	// next claim never mistakes a live run for a dead one.
	progress atomic.Int64

	pipeline   *Pipeline
	batchWidth int
	cooldown   time.Duration
	logger     *slog.Logger
}

// EngineConfig configures a new Engine.
type EngineConfig struct {
	Pipeline   *Pipeline
	BatchWidth int           // Concurrent items per batch (default 3)
	Cooldown   time.Duration // Sleep between batches (default 1s)
	Logger     *slog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	width := cfg.BatchWidth
	if width <= 0 {
		width = 3
	}
	cooldown := cfg.Cooldown
	if cooldown < 0 {
		cooldown = 0
	}
	return &Engine{
		pipeline:   cfg.Pipeline,
		batchWidth: width,
		cooldown:   cooldown,
		logger:     logger,
	}
}

// Enqueue accepts a document into the queue and returns its item. The
// caller is responsible for size and type validation.
func (e *Engine) Enqueue(filename, text string) *Item {
	item := &Item{
		ID:         uuid.New().String(),
		Filename:   filename,
		Text:       text,
		Status:     StatusPending,
		EnqueuedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	e.items = append(e.items, item)
	e.mu.Unlock()

	e.logger.Info("item enqueued", "item_id", item.ID, "filename", filename)
	return item
}

// StartRun attempts to begin a processing run. The admission check is an
// atomic compare-and-swap with no suspension point, so exactly one of any
// number of concurrent callers wins. Returns ErrAlreadyRunning to losers.
// The recovery scan and the first batch claim happen synchronously before
// the run goroutine is spawned: once StartRun returns with work pending,
// that work is already marked processing, so a status read immediately
// after a healthy start can never observe the lock held with nothing in
// flight and mistake the run for stuck.
func (e *Engine) StartRun(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	e.cancel.Store(false)
	e.touch()

	recovered := e.recoverStuckItems()
	if recovered > 0 {
		e.logger.Warn("reset items stuck in processing", "count", recovered)
	}

	first := e.nextBatch()
	if len(first) == 0 {
		e.running.Store(false)
		e.logger.Info("run finished", "batches", 0)
		return nil
	}

	// The run must outlive the caller's request context.
	go e.run(context.WithoutCancel(ctx), first)
	return nil
}

// run executes one full pass over pending items, starting from the batch
// StartRun already claimed. The lock release is unconditional: a leaked
// lock would stall the queue until an operator force-unlocks it.
func (e *Engine) run(ctx context.Context, batch []*Item) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("run panicked", "panic", r)
		}
		e.running.Store(false)
	}()

	e.logger.Info("run started", "claimed", len(batch), "pending", len(e.pendingItems()))

	batchNum := 0
	for len(batch) > 0 {
		// Cooldown before every batch but the first, so it never trails
		// the final batch. The next batch is already claimed at this
		// point, so a status read during the sleep always sees work in
		// flight. A cancel landing during the sleep returns the claimed
		// items to pending instead of running them.
		if batchNum > 0 && e.cooldown > 0 {
			select {
			case <-time.After(e.cooldown):
			case <-ctx.Done():
				e.unclaim(batch)
				e.logger.Info("run context cancelled during cooldown")
				return
			}
			if e.cancel.Load() {
				e.unclaim(batch)
				e.logger.Info("run cancelled", "batches_completed", batchNum)
				return
			}
		}

		batchNum++
		e.logger.Debug("batch started", "batch", batchNum, "size", len(batch))
		e.runBatch(ctx, batch)
		e.touch()

		// A started batch always finishes; cancellation takes effect at
		// the boundary.
		if e.cancel.Load() {
			e.logger.Info("run cancelled", "batches_completed", batchNum)
			return
		}

		batch = e.nextBatch()
	}

	e.logger.Info("run finished", "batches", batchNum)
}

// nextBatch claims up to batchWidth pending items, marking them processing
// under the lock so a status scan never sees a claimed item as pending.
func (e *Engine) nextBatch() []*Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	var batch []*Item
	now := time.Now().UTC()
	for _, it := range e.items {
		if it.Status != StatusPending {
			continue
		}
		started := now
		it.Status = StatusProcessing
		it.StartedAt = &started
		batch = append(batch, it)
		if len(batch) == e.batchWidth {
			break
		}
	}
	return batch
}

// runBatch processes all items of a batch concurrently and waits for every
// item to reach a terminal state. Item failures are isolated: the worker
// never returns an error to the group, and a panic in one item's pipeline
// fails only that item.
func (e *Engine) runBatch(ctx context.Context, batch []*Item) {
	g := new(errgroup.Group)
	for _, item := range batch {
		g.Go(func() error {
			e.processItem(ctx, item)
			return nil
		})
	}
	// Err is always nil; Wait is the fan-in barrier.
	_ = g.Wait()
}

// processItem runs one item through the pipeline and applies the outcome.
func (e *Engine) processItem(ctx context.Context, item *Item) {
	start := time.Now()

	var out outcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("pipeline panic: %v", r)
			}
		}()
		out = e.pipeline.process(ctx, item.ID, item.Filename, item.Text)
	}()

	e.applyOutcome(item, out, time.Since(start))
}

// applyOutcome writes the pipeline result onto the item under the engine
// lock so concurrent status reads see consistent state.
func (e *Engine) applyOutcome(item *Item, out outcome, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	item.CompletedAt = &now
	item.Metrics = &ItemMetrics{
		DurationMs:        elapsed.Milliseconds(),
		FormattingApplied: out.formattingApplied,
	}
	item.Gating = out.gating
	if out.text != "" {
		item.Text = out.text
	}

	if out.err != nil {
		item.Status = StatusFailed
		item.Error = out.err.Error()
		e.logger.Error("item failed", "item_id", item.ID, "error", out.err)
		return
	}

	item.Status = StatusCompleted
	item.Result = out.result
	item.Metrics.ChunkCount = len(out.result.Chunks)
	if out.result.Augmentation != nil {
		item.Metrics.SummaryCount = len(out.result.Augmentation.Summaries)
	}
	e.logger.Info("item completed",
		"item_id", item.ID,
		"duration_ms", item.Metrics.DurationMs,
		"chunks", item.Metrics.ChunkCount,
		"escalated", item.Gating != nil && item.Gating.Escalated,
	)
}

// touch records scheduling progress for stuck-state detection.
func (e *Engine) touch() {
	e.progress.Store(time.Now().UnixNano())
}

// unclaim returns claimed-but-unstarted items to pending, for runs that
// stop between claiming a batch and running it.
func (e *Engine) unclaim(batch []*Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, it := range batch {
		it.Status = StatusPending
		it.StartedAt = nil
	}
}

// recoverStuckItems resets items left in processing by a prior run that
// never finished. Returns the number reset.
func (e *Engine) recoverStuckItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, it := range e.items {
		if it.Status == StatusProcessing {
			it.Status = StatusPending
			it.StartedAt = nil
			count++
		}
	}
	return count
}

// CancelRun requests cooperative cancellation. The current batch finishes;
// no further batch starts. Acknowledged immediately regardless of whether a
// run is active.
func (e *Engine) CancelRun() {
	e.cancel.Store(true)
	e.logger.Info("run cancellation requested")
}

// Running reports whether the run lock is held.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// ForceUnlock unconditionally clears the run lock. Operator escape hatch
// for stuck states the automatic recovery has not caught.
func (e *Engine) ForceUnlock() {
	e.running.Store(false)
	e.logger.Warn("run lock force-cleared")
}

// ClearAll removes every item. Rejected while a run is in flight since
// in-flight items would be left writing to unreachable records.
func (e *Engine) ClearAll() error {
	if e.running.Load() {
		return ErrRunInFlight
	}

	e.mu.Lock()
	n := len(e.items)
	e.items = nil
	e.mu.Unlock()

	e.logger.Info("queue cleared", "removed", n)
	return nil
}

// Remove deletes one item by id. Processing items cannot be removed.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, it := range e.items {
		if it.ID != id {
			continue
		}
		if it.Status == StatusProcessing {
			return ErrItemProcessing
		}
		e.items = append(e.items[:i], e.items[i+1:]...)
		e.logger.Info("item removed", "item_id", id)
		return nil
	}
	return ErrNotFound
}

// Download returns the stored structured result for a completed item.
func (e *Engine) Download(id string) (*convert.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, it := range e.items {
		if it.ID != id {
			continue
		}
		if it.Status != StatusCompleted {
			return nil, ErrNotCompleted
		}
		return it.Result, nil
	}
	return nil, ErrNotFound
}

// pendingItems returns the current pending items, for logging.
func (e *Engine) pendingItems() []*Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*Item
	for _, it := range e.items {
		if it.Status == StatusPending {
			out = append(out, it)
		}
	}
	return out
}
