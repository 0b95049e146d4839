package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tadeasf/file-organizer/pkg/organizer/archive"
	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"
)

// archiveManager packs walked files into an archive, extracts archives,
// updates entries inside an existing archive, or writes a size-capped
// multi-part archive set.
type archiveManager struct {
	logger   *slog.Logger
	mode     ArchiveMode
	format   archive.Format
	level    archive.Level
	outPath  string // archive path (create/update/split stem) or extraction root
	resolver *conflict.Resolver

	mu           sync.Mutex
	w            archive.Writer
	sw           *archive.SplitWriter
	splitSize    int64
	replacements map[string]string // archive member name -> replacement source path
}

func newArchiveManager(opts *Options, logger *slog.Logger) (Module, error) {
	mode := opts.ArchiveMode
	if mode == "" {
		mode = ArchiveCreate
	}
	switch mode {
	case ArchiveCreate, ArchiveExtract, ArchiveUpdate, ArchiveSplit:
	default:
		return nil, fmt.Errorf("%w: unknown archive mode %q", ErrConfigValidation, mode)
	}

	level := archive.Level(opts.Level)
	if level == "" {
		level = archive.LevelBalanced
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown compression level %q", ErrConfigValidation, opts.Level)
	}

	policy := opts.ConflictPolicy
	if policy == "" {
		policy = conflict.PolicyRename
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", ErrConfigValidation, policy)
	}

	m := &archiveManager{
		logger:       logger.With(slog.String("component", "archive-manager")),
		mode:         mode,
		level:        level,
		outPath:      opts.OutputPath,
		resolver:     conflict.NewResolver(policy),
		splitSize:    opts.SplitSize,
		replacements: make(map[string]string),
	}

	switch mode {
	case ArchiveExtract:
		// Format is detected per archive; outPath is the optional
		// extraction root.
		return m, nil

	case ArchiveUpdate:
		if m.outPath == "" {
			return nil, fmt.Errorf("%w: update mode requires the archive path via --output", ErrConfigValidation)
		}
		if _, err := os.Stat(m.outPath); err != nil {
			return nil, fmt.Errorf("%w: archive %s: %v", ErrConfigValidation, m.outPath, err)
		}

	case ArchiveSplit:
		if m.splitSize <= 0 {
			return nil, fmt.Errorf("%w: split mode requires a positive --split-size", ErrConfigValidation)
		}
	}

	format, err := resolveFormat(opts.ArchiveFormat, m.outPath)
	if err != nil {
		return nil, err
	}
	m.format = format

	if m.outPath == "" {
		m.outPath = defaultArchivePath(opts.Roots[0], format)
	}
	abs, err := filepath.Abs(m.outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve archive path %q: %v", ErrConfigValidation, m.outPath, err)
	}
	m.outPath = abs
	return m, nil
}

// resolveFormat picks the container format from the explicit flag, the
// output filename, or the zip default, in that order.
func resolveFormat(explicit, outPath string) (archive.Format, error) {
	if explicit != "" {
		f := archive.Format(explicit)
		if !f.Valid() {
			return "", fmt.Errorf("%w: unknown archive format %q", ErrConfigValidation, explicit)
		}
		return f, nil
	}
	if outPath != "" {
		if f, ok := archive.DetectFormat(outPath); ok {
			return f, nil
		}
	}
	return archive.Zip, nil
}

// defaultArchivePath places <root-basename>.<ext> next to the root.
func defaultArchivePath(root string, format archive.Format) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	name := filepath.Base(abs) + "." + format.Extension()
	return filepath.Join(filepath.Dir(abs), name)
}

func (m *archiveManager) Name() string { return string(ModuleArchive) }

func (m *archiveManager) Match(relPath string, d fs.DirEntry) bool {
	if !d.Type().IsRegular() {
		return false
	}
	if m.mode == ArchiveExtract {
		_, ok := archive.DetectFormat(d.Name())
		return ok
	}
	return true
}

func (m *archiveManager) Process(ctx context.Context, entry FileEntry) Outcome {
	if m.isOwnOutput(entry.Path) {
		return SkipOutcome(entry, "output archive")
	}

	switch m.mode {
	case ArchiveExtract:
		return m.extract(entry)
	case ArchiveUpdate:
		m.mu.Lock()
		m.replacements[filepath.ToSlash(entry.RelPath)] = entry.Path
		m.mu.Unlock()
		return SuccessOutcome(entry, m.outPath)
	case ArchiveSplit:
		return m.addSplit(entry)
	default:
		return m.add(entry)
	}
}

// isOwnOutput reports whether path is the archive being written, or one of
// its split parts. The walker can observe the output mid-run when it lives
// under a walked root.
func (m *archiveManager) isOwnOutput(path string) bool {
	if path == m.outPath {
		return true
	}
	if m.mode != ArchiveSplit {
		return false
	}
	ext := "." + m.format.Extension()
	stem := strings.TrimSuffix(m.outPath, ext)
	return strings.HasPrefix(path, stem+".part") && strings.HasSuffix(path, ext)
}

func (m *archiveManager) add(entry FileEntry) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		w, err := archive.NewWriter(m.outPath, m.format, m.level)
		if err != nil {
			return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
		}
		m.w = w
	}
	if err := m.w.AddFile(filepath.ToSlash(entry.RelPath), entry.Path); err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	return SuccessOutcome(entry, m.outPath)
}

func (m *archiveManager) addSplit(entry FileEntry) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sw == nil {
		m.sw = archive.NewSplitWriter(m.outPath, m.format, m.level, m.splitSize)
	}
	part, err := m.sw.AddFile(filepath.ToSlash(entry.RelPath), entry.Path, entry.Size)
	if err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	return SuccessOutcome(entry, part)
}

// extract unpacks one walked archive. Each member destination goes through
// the conflict resolver, so the rename, skip, overwrite and abort policies
// apply per extracted file.
func (m *archiveManager) extract(entry FileEntry) Outcome {
	destRoot := m.outPath
	if destRoot == "" {
		destRoot = filepath.Dir(entry.Path)
	}

	decide := func(e archive.Entry) (string, bool, error) {
		target := filepath.Join(destRoot, filepath.FromSlash(e.Name))
		dec, err := m.resolver.Resolve(target)
		if err != nil {
			return "", false, err
		}
		switch dec.Action {
		case conflict.ActionSkip:
			return "", false, nil
		case conflict.ActionAbort:
			return "", false, fmt.Errorf("%w: %s already exists", ErrConflict, target)
		default:
			return dec.Path, true, nil
		}
	}

	written, skipped, err := archive.Extract(entry.Path, decide)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return FailOutcome(entry, err)
		}
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrRead, err))
	}
	oc := SuccessOutcome(entry, destRoot)
	oc.Reason = fmt.Sprintf("extracted %d entries (%d skipped)", len(written), skipped)
	return oc
}

// Finalize closes the writers and, for update mode, rewrites the target
// archive with the collected replacements.
func (m *archiveManager) Finalize(ctx context.Context, report *Report) error {
	switch m.mode {
	case ArchiveCreate:
		if m.w == nil {
			m.logger.Debug("no files archived, skipping archive creation")
			return nil
		}
		if err := m.w.Close(); err != nil {
			return fmt.Errorf("%w: close %s: %v", ErrWrite, m.outPath, err)
		}
		report.Parts = []string{m.outPath}
	case ArchiveSplit:
		if m.sw == nil {
			return nil
		}
		if err := m.sw.Close(); err != nil {
			return fmt.Errorf("%w: close %s: %v", ErrWrite, m.outPath, err)
		}
		report.Parts = m.sw.Parts()
	case ArchiveUpdate:
		if len(m.replacements) == 0 {
			return nil
		}
		if err := m.rewrite(); err != nil {
			return err
		}
		report.Parts = []string{m.outPath}
	}
	return nil
}

// rewrite streams the existing archive into a sibling temp file, swapping
// in the replacement entries and appending the new ones, then renames the
// temp file over the original.
func (m *archiveManager) rewrite() error {
	tmp := m.outPath + ".tmp"
	w, err := archive.NewWriter(tmp, m.format, m.level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	cleanup := func() {
		w.Close()
		os.Remove(tmp)
	}

	r, err := archive.OpenReader(m.outPath)
	if err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrRead, err)
	}

	pending := make(map[string]string, len(m.replacements))
	for name, src := range m.replacements {
		pending[name] = src
	}
	for {
		e, content, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.Close()
			cleanup()
			return fmt.Errorf("%w: %v", ErrRead, err)
		}
		if src, ok := pending[e.Name]; ok {
			delete(pending, e.Name)
			if err := w.AddFile(e.Name, src); err != nil {
				r.Close()
				cleanup()
				return fmt.Errorf("%w: %v", ErrWrite, err)
			}
			continue
		}
		if err := w.AddReader(e, content); err != nil {
			r.Close()
			cleanup()
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	if err := r.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrRead, err)
	}

	// Entries that were not already in the archive are appended.
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.AddFile(name, pending[name]); err != nil {
			cleanup()
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}

	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %v", ErrWrite, tmp, err)
	}
	if err := os.Rename(tmp, m.outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %v", ErrWrite, m.outPath, err)
	}
	return nil
}
