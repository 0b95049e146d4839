package organizer

import (
	"log/slog"
	"time"

	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"
	"github.com/tadeasf/file-organizer/pkg/organizer/fingerprint"
)

// Hooks defines callbacks for status updates during a run.
// Implementations MUST be thread-safe; OnFileDiscovered and
// OnFileStatusUpdate may be called from concurrent goroutines. The engine
// never blocks on a hook beyond the call itself, and hook errors are logged
// rather than propagated.
type Hooks interface {
	// OnFileDiscovered is called once per file the walker accepts, before
	// the file is dispatched to a worker.
	OnFileDiscovered(path string) error
	// OnFileStatusUpdate is called once per outcome, in walk order.
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	// OnRunComplete is called exactly once with the final report.
	OnRunComplete(report Report) error
}

// NoOpHooks is the default, do-nothing Hooks implementation.
type NoOpHooks struct{}

// OnFileDiscovered implements Hooks. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(string) error { return nil }

// OnFileStatusUpdate implements Hooks. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(string, Status, string, time.Duration) error { return nil }

// OnRunComplete implements Hooks. It performs no action.
func (h *NoOpHooks) OnRunComplete(Report) error { return nil }

// Options holds all configuration for a Run.
type Options struct {
	// --- Core ---
	Module    ModuleKind `mapstructure:"-"`         // Required: selected by subcommand
	Roots     []string   `mapstructure:"-"`         // Required: input root paths (positional args)
	Recursive bool       `mapstructure:"recursive"` // Descend into subdirectories
	Verbose   bool       `mapstructure:"verbose"`   // Enable debug logging

	// --- Performance & control ---
	Concurrency    int      `mapstructure:"concurrency"` // Number of workers (0 = auto)
	IgnorePatterns []string `mapstructure:"ignore"`      // gitignore-style exclude patterns
	FailOnError    bool     `mapstructure:"failOnError"` // Non-zero exit when any item failed

	// --- Image optimizer ---
	TargetFormat string `mapstructure:"format"` // jpeg, png or gif

	// --- Flattener / extraction / archive output ---
	OutputPath     string          `mapstructure:"output"`   // Output root, archive path, or extraction dir
	ConflictPolicy conflict.Policy `mapstructure:"conflict"` // rename, skip, overwrite, abort

	// --- Deduplicator ---
	DuplicateAction DuplicateAction       `mapstructure:"action"`        // report, move, remove
	WeakHash        fingerprint.Algorithm `mapstructure:"hash"`          // candidate pre-filter algorithm
	StrongHash      fingerprint.Algorithm `mapstructure:"strongHash"`    // confirmation algorithm
	DuplicatesDir   string                `mapstructure:"duplicatesDir"` // quarantine dir for the move action
	ReportFile      string                `mapstructure:"reportFile"`    // optional YAML duplicate report

	// --- Archive manager ---
	ArchiveMode   ArchiveMode `mapstructure:"mode"`          // create, extract, update, split
	ArchiveFormat string      `mapstructure:"archiveFormat"` // zip, tar, tar.gz, tar.zst
	Level         string      `mapstructure:"level"`         // none, fast, balanced, best
	SplitSizeStr  string      `mapstructure:"splitSize"`     // e.g. "100MB"; parsed by the CLI layer
	SplitSize     int64       `mapstructure:"-"`             // Derived split size in bytes

	// --- Output ---
	OutputFormat OutputFormat `mapstructure:"outputFormat"` // text or json summary

	// --- Injected dependencies ---
	Hooks  Hooks        `mapstructure:"-"` // Optional: progress callbacks
	Logger slog.Handler `mapstructure:"-"` // Required: logging backend
}
