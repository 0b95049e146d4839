package organizer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"
)

// directoryFlattener moves every file in the tree directly under the
// output root, resolving basename collisions with the configured policy.
// Flattening is inherently recursive regardless of the recursive flag.
type directoryFlattener struct {
	logger     *slog.Logger
	outputRoot string
	resolver   *conflict.Resolver
}

func newDirectoryFlattener(opts *Options, logger *slog.Logger) (Module, error) {
	policy := opts.ConflictPolicy
	if policy == "" {
		policy = conflict.PolicyRename
	}
	if policy != conflict.PolicyRename && policy != conflict.PolicySkip {
		return nil, fmt.Errorf("%w: directory-flatten supports conflict policies %q and %q, got %q",
			ErrConfigValidation, conflict.PolicyRename, conflict.PolicySkip, policy)
	}
	outputRoot := opts.OutputPath
	if outputRoot == "" {
		outputRoot = opts.Roots[0]
	}
	abs, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve output root %q: %v", ErrConfigValidation, outputRoot, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output root %q: %v", ErrConfigValidation, abs, err)
	}
	opts.Recursive = true

	return &directoryFlattener{
		logger:     logger.With(slog.String("component", "flattener")),
		outputRoot: abs,
		resolver:   conflict.NewResolver(policy),
	}, nil
}

func (m *directoryFlattener) Name() string { return string(ModuleDirectoryFlatten) }

func (m *directoryFlattener) Match(relPath string, d fs.DirEntry) bool {
	return d.Type().IsRegular()
}

func (m *directoryFlattener) Process(ctx context.Context, entry FileEntry) Outcome {
	if filepath.Dir(entry.Path) == m.outputRoot {
		return SkipOutcome(entry, "already at top level")
	}

	target := filepath.Join(m.outputRoot, filepath.Base(entry.Path))
	dec, err := m.resolver.Resolve(target)
	if err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	switch dec.Action {
	case conflict.ActionSkip:
		return SkipOutcome(entry, "name already taken")
	case conflict.ActionAbort:
		return FailOutcome(entry, fmt.Errorf("%w: %s", ErrConflict, target))
	}

	if err := moveFile(entry.Path, dec.Path); err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	m.logger.Debug("moved", slog.String("from", entry.Path), slog.String("to", dec.Path))
	return SuccessOutcome(entry, dec.Path)
}

func (m *directoryFlattener) Finalize(ctx context.Context, report *Report) error {
	return nil
}
