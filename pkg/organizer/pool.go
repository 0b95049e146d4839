package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pool maps a transform over the walked entry sequence with bounded
// concurrency. Completion order across workers is unconstrained; the pool
// buffers finished results and re-serializes them into walk order before
// hooks or the report observe them. A panic or error inside one transform
// becomes a failed outcome for that item and never disturbs sibling
// workers. Cancellation is cooperative: the stop signal halts dispatch of
// not-yet-started items (they are recorded as skipped), while in-flight
// items run to completion.
type Pool struct {
	workers int
	hooks   Hooks
	logger  *slog.Logger
}

// NewPool creates a pool with the given worker count.
func NewPool(workers int, hooks Hooks, loggerHandler slog.Handler) *Pool {
	return &Pool{
		workers: workers,
		hooks:   hooks,
		logger:  slog.New(loggerHandler).With(slog.String("component", "pool")),
	}
}

// Run consumes entries until the channel closes and returns one outcome
// per entry, ordered by walk sequence number.
func (p *Pool) Run(ctx context.Context, entries <-chan FileEntry, transform func(context.Context, FileEntry) Outcome) []Outcome {
	dispatchChan := make(chan FileEntry, p.workers)
	resultsChan := make(chan Outcome, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for entry := range dispatchChan {
				resultsChan <- p.runOne(ctx, workerID, transform, entry)
			}
		}(i)
	}

	// The dispatcher drains the entry channel completely even after
	// cancellation, so every walked entry is accounted for.
	go func() {
		for entry := range entries {
			if ctx.Err() != nil {
				resultsChan <- cancelledOutcome(entry)
				continue
			}
			select {
			case dispatchChan <- entry:
			case <-ctx.Done():
				resultsChan <- cancelledOutcome(entry)
			}
		}
		close(dispatchChan)
		wg.Wait()
		close(resultsChan)
	}()

	return p.collect(resultsChan)
}

// runOne executes the transform for a single entry, converting a panic
// into a failed outcome so one bad item cannot take down the pool.
func (p *Pool) runOne(ctx context.Context, workerID int, transform func(context.Context, FileEntry) Outcome, entry FileEntry) (oc Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic recovered in worker",
				slog.Int("workerID", workerID),
				slog.String("path", entry.Path),
				slog.Any("panicValue", r))
			oc = FailOutcome(entry, fmt.Errorf("panic: %v", r))
		}
		oc.Entry = entry
		oc.Duration = time.Since(start)
	}()
	return transform(ctx, entry)
}

// collect re-serializes concurrent completions into submission order. The
// reorder buffer holds results whose predecessors are still in flight and
// releases each outcome exactly once, in walk order.
func (p *Pool) collect(resultsChan <-chan Outcome) []Outcome {
	var ordered []Outcome
	pending := make(map[int]Outcome)
	next := 0
	for oc := range resultsChan {
		pending[oc.Entry.Seq] = oc
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			p.emit(ready)
			ordered = append(ordered, ready)
		}
	}
	return ordered
}

func (p *Pool) emit(oc Outcome) {
	msg := oc.Reason
	if oc.Err != nil {
		msg = oc.Err.Error()
	}
	if err := p.hooks.OnFileStatusUpdate(oc.Entry.RelPath, oc.Status, msg, oc.Duration); err != nil {
		p.logger.Warn("OnFileStatusUpdate hook failed", slog.String("path", oc.Entry.RelPath), slog.String("error", err.Error()))
	}
}

func cancelledOutcome(entry FileEntry) Outcome {
	return SkipOutcome(entry, cancelledReason)
}
