package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// Engine orchestrates one run: it wires the walker into the worker pool,
// hands each entry to the selected module, and assembles the final report.
type Engine struct {
	opts   *Options
	logger *slog.Logger
	module Module
}

// NewEngine validates opts and constructs the engine. Validation failures
// are the only fatal errors raised before workers start; everything later
// is converted to per-item outcomes or collected traversal errors.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.Hooks == nil {
		opts.Hooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if len(opts.Roots) == 0 {
		return nil, fmt.Errorf("%w: at least one input path is required", ErrConfigValidation)
	}
	for _, root := range opts.Roots {
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("%w: cannot access input path %q: %v", ErrConfigValidation, root, err)
		}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
		logger.Debug("concurrency auto-detected", slog.Int("count", opts.Concurrency))
	}

	module, err := newModule(&opts, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{opts: &opts, logger: logger, module: module}, nil
}

// Run executes the pipeline and returns the report. Per-item failures are
// recorded in the report, not returned; the error covers fatal conditions
// only (finalize failure or an engine-level panic).
func (e *Engine) Run(ctx context.Context) (rep Report, err error) {
	startTime := time.Now()
	e.logger.Info("starting run",
		slog.String("module", string(e.opts.Module)),
		slog.Int("concurrency", e.opts.Concurrency),
		slog.Bool("recursive", e.opts.Recursive))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic recovered during run", slog.Any("panicValue", r))
			if err == nil {
				err = fmt.Errorf("panic during execution: %v", r)
			}
		}
		if hookErr := e.opts.Hooks.OnRunComplete(rep); hookErr != nil {
			e.logger.Warn("OnRunComplete hook failed", slog.String("error", hookErr.Error()))
		}
		e.logger.Info("run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("total", rep.Summary.Total),
			slog.Int("succeeded", rep.Summary.Succeeded),
			slog.Int("skipped", rep.Summary.Skipped),
			slog.Int("failed", rep.Summary.Failed))
	}()

	entries := make(chan FileEntry, e.opts.Concurrency)
	walker := NewWalker(e.opts, e.module, e.opts.Logger)

	walkErrsChan := make(chan []ItemError, 1)
	go func() {
		walkErrsChan <- walker.Walk(entries)
	}()

	pool := NewPool(e.opts.Concurrency, e.opts.Hooks, e.opts.Logger)
	outcomes := pool.Run(ctx, entries, e.module.Process)
	walkErrs := <-walkErrsChan

	rep = buildReport(e.opts, outcomes, walkErrs, startTime)
	if finErr := e.module.Finalize(ctx, &rep); finErr != nil {
		e.logger.Error("module finalize failed", slog.String("error", finErr.Error()))
		return rep, fmt.Errorf("finalize %s: %w", e.module.Name(), finErr)
	}

	// Finalize may add counts (dedup confirms groups after outcomes), so
	// the summary duration is refreshed last.
	rep.Summary.DurationSeconds = time.Since(startTime).Seconds()
	return rep, nil
}

// Run validates opts, executes one full pipeline run and returns the
// report. It is the package's primary entry point.
func Run(ctx context.Context, opts Options) (Report, error) {
	engine, err := NewEngine(opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Run(ctx)
}
