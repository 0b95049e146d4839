package organizer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
)

// Module supplies the per-file transform of a run. The set of
// implementations is closed: image optimizer, directory flattener,
// deduplicator and archive manager. Process is called concurrently from
// the worker pool and must be safe for concurrent use; Finalize runs once
// after every outcome has been collected and may attach aggregate results
// (duplicate groups, archive parts) to the report.
type Module interface {
	Name() string
	// Match filters walker output. relPath is slash-separated and relative
	// to the walk root.
	Match(relPath string, d fs.DirEntry) bool
	// Process transforms one file and reports its outcome. Errors never
	// propagate: they are embedded in a failed outcome.
	Process(ctx context.Context, entry FileEntry) Outcome
	// Finalize runs aggregate work after all per-file outcomes exist. A
	// returned error fails the run.
	Finalize(ctx context.Context, report *Report) error
}

// newModule constructs and validates the module selected by opts.
func newModule(opts *Options, logger *slog.Logger) (Module, error) {
	switch opts.Module {
	case ModuleImageOptimize:
		return newImageOptimizer(opts, logger)
	case ModuleDirectoryFlatten:
		return newDirectoryFlattener(opts, logger)
	case ModuleDeduplicate:
		return newDeduplicator(opts, logger)
	case ModuleArchive:
		return newArchiveManager(opts, logger)
	}
	return nil, fmt.Errorf("%w: unknown module %q", ErrConfigValidation, opts.Module)
}
