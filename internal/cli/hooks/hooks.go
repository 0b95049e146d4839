// Package hooks bridges engine events to the CLI's terminal output: a
// progress bar on a TTY, structured logs in verbose mode, and error-only
// logging otherwise.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tadeasf/file-organizer/pkg/organizer"
)

// ProgressBar is the slice of schollz/progressbar the hooks need. Keeping
// it as an interface lets tests substitute a recorder.
type ProgressBar interface {
	Add(num int) error
	ChangeMax(max int)
	Describe(description string)
	Close() error
}

// NoOpProgressBar is the default null implementation.
type NoOpProgressBar struct{}

func (n *NoOpProgressBar) Add(int) error { return nil }

func (n *NoOpProgressBar) ChangeMax(int) {}

func (n *NoOpProgressBar) Describe(string) {}

func (n *NoOpProgressBar) Close() error { return nil }

// CLIHooks implements organizer.Hooks. All methods are safe for concurrent
// use; the walker and workers call them from separate goroutines.
type CLIHooks struct {
	logger  *slog.Logger
	verbose bool
	bar     ProgressBar

	mu         sync.Mutex
	discovered int
}

// New creates hooks that drive the given progress bar. Pass nil for bar to
// disable progress output.
func New(logger *slog.Logger, verbose bool, bar ProgressBar) organizer.Hooks {
	if bar == nil {
		bar = &NoOpProgressBar{}
	}
	return &CLIHooks{logger: logger, verbose: verbose, bar: bar}
}

// OnFileDiscovered grows the progress bar total as the walker streams
// entries, so the bar converges on the real file count mid-run.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	h.discovered++
	h.bar.ChangeMax(h.discovered)
	h.mu.Unlock()
	if h.verbose {
		h.logger.Debug("file discovered", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate logs or advances the bar for one final outcome.
func (h *CLIHooks) OnFileStatusUpdate(path string, status organizer.Status, message string, duration time.Duration) error {
	if h.verbose {
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			key := "message"
			if status == organizer.StatusFailed {
				key = "error"
			}
			attrs = append(attrs, slog.String(key, message))
		}
		level := slog.LevelInfo
		msg := "file processed"
		if status == organizer.StatusFailed {
			level = slog.LevelError
			msg = "file processing failed"
		}
		h.logger.Log(context.Background(), level, msg, attrs...)
		return nil
	}

	h.mu.Lock()
	_ = h.bar.Add(1)
	h.bar.Describe(filepath.Base(path))
	h.mu.Unlock()

	if status == organizer.StatusFailed {
		h.logger.Error("file processing failed", slog.String("path", path), slog.String("error", message))
	}
	return nil
}

// OnRunComplete finalizes the progress bar before the summary prints.
func (h *CLIHooks) OnRunComplete(report organizer.Report) error {
	h.mu.Lock()
	_ = h.bar.Close()
	h.mu.Unlock()
	if !h.verbose {
		// Keep the summary off the progress bar's line.
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
