package organizer

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

// Walker produces the lazy sequence of file entries under the configured
// roots. Directories that cannot be read yield collected traversal errors
// instead of aborting the run, symbolic links are never followed, and
// filepath.WalkDir's lexical ordering gives a stable enumeration order for
// a given directory state. The walker keeps enumerating after the run
// context is cancelled; the pool records the remaining entries as skipped,
// so every discovered entry still receives exactly one outcome.
type Walker struct {
	roots     []string
	recursive bool
	patterns  []string
	match     func(relPath string, d fs.DirEntry) bool
	hooks     Hooks
	logger    *slog.Logger
}

// NewWalker creates a walker feeding the given module's predicate.
func NewWalker(opts *Options, module Module, loggerHandler slog.Handler) *Walker {
	return &Walker{
		roots:     opts.Roots,
		recursive: opts.Recursive,
		patterns:  opts.IgnorePatterns,
		match:     module.Match,
		hooks:     opts.Hooks,
		logger:    slog.New(loggerHandler).With(slog.String("component", "walker")),
	}
}

// Walk enumerates all roots, sending accepted entries to out in a single
// pass, and returns the collected traversal errors. It closes out when
// enumeration finishes.
func (w *Walker) Walk(out chan<- FileEntry) []ItemError {
	defer close(out)

	var walkErrs []ItemError
	seq := 0
	for _, root := range w.roots {
		walkErrs = append(walkErrs, w.walkRoot(root, out, &seq)...)
	}
	w.logger.Debug("walk completed", slog.Int("entries", seq), slog.Int("errors", len(walkErrs)))
	return walkErrs
}

func (w *Walker) walkRoot(root string, out chan<- FileEntry, seq *int) []ItemError {
	var walkErrs []ItemError
	var ignore gitignore.IgnoreMatcher
	if len(w.patterns) > 0 {
		ignore = gitignore.NewGitIgnoreFromReader(root, strings.NewReader(strings.Join(w.patterns, "\n")))
	}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error accessing path", slog.String("path", path), slog.String("error", err.Error()))
			walkErrs = append(walkErrs, ItemError{Path: path, Error: err.Error()})
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("skipping symbolic link", slog.String("path", path))
			return nil
		}
		isDir := d.IsDir()
		if isDir {
			if path == root {
				return nil
			}
			if ignore != nil && ignore.Match(path, true) {
				return filepath.SkipDir
			}
			if !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore != nil && ignore.Match(path, false) {
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = filepath.Base(path)
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			// Root itself is a regular file (e.g. an archive to extract).
			relPath = filepath.Base(path)
		}
		if !w.match(relPath, d) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			walkErrs = append(walkErrs, ItemError{Path: path, Error: infoErr.Error()})
			return nil
		}
		absPath, absErr := filepath.Abs(path)
		if absErr != nil {
			absPath = path
		}

		if hookErr := w.hooks.OnFileDiscovered(relPath); hookErr != nil {
			w.logger.Warn("OnFileDiscovered hook failed", slog.String("path", relPath), slog.String("error", hookErr.Error()))
		}

		out <- FileEntry{
			Path:    absPath,
			RelPath: relPath,
			Root:    root,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Seq:     *seq,
		}
		*seq++
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		// WalkDir only returns an error propagated from walkFn; walkFn
		// collects instead of propagating, so this is unexpected.
		walkErrs = append(walkErrs, ItemError{Path: root, Error: err.Error()})
	}
	return walkErrs
}
