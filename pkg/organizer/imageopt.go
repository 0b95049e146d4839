package organizer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"

	// Decoders for formats accepted as input. WebP, BMP and TIFF have no
	// encoder here, so they are convert-from only.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// jpegQuality trades size for quality on re-encode, matching common batch
// conversion defaults.
const jpegQuality = 85

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".webp": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
}

// imageOptimizer decodes each image and re-encodes it into the target
// format under a per-format output subdirectory created on first use.
type imageOptimizer struct {
	logger    *slog.Logger
	format    string // jpeg, png or gif
	dirName   string // output subdirectory name, e.g. "jpg"
	outputDir string // overrides per-root subdirectories when set
	resolver  *conflict.Resolver

	mu      sync.Mutex
	created map[string]struct{}
}

func newImageOptimizer(opts *Options, logger *slog.Logger) (Module, error) {
	format := strings.ToLower(opts.TargetFormat)
	if format == "" {
		format = "jpeg"
	}
	var dirName string
	switch format {
	case "jpeg", "jpg":
		format, dirName = "jpeg", "jpg"
	case "png":
		dirName = "png"
	case "gif":
		dirName = "gif"
	case "webp":
		return nil, fmt.Errorf("%w: webp is supported as input only (no encoder available); target formats are jpeg, png, gif", ErrConfigValidation)
	default:
		return nil, fmt.Errorf("%w: unknown target format %q (supported: jpeg, png, gif)", ErrConfigValidation, opts.TargetFormat)
	}

	return &imageOptimizer{
		logger:    logger.With(slog.String("component", "imageOptimizer")),
		format:    format,
		dirName:   dirName,
		outputDir: opts.OutputPath,
		resolver:  conflict.NewResolver(conflict.PolicyRename),
		created:   make(map[string]struct{}),
	}, nil
}

func (m *imageOptimizer) Name() string { return string(ModuleImageOptimize) }

func (m *imageOptimizer) Match(relPath string, d fs.DirEntry) bool {
	if !d.Type().IsRegular() {
		return false
	}
	// Never reprocess files already sitting in the output subdirectory.
	if first, _, found := strings.Cut(relPath, "/"); found && first == m.dirName {
		return false
	}
	_, ok := imageExts[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

func (m *imageOptimizer) Process(ctx context.Context, entry FileEntry) Outcome {
	src, err := os.Open(entry.Path)
	if err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrRead, err))
	}
	img, _, err := image.Decode(src)
	src.Close()
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return FailOutcome(entry, fmt.Errorf("%w: %s", ErrUnsupportedFormat, entry.Path))
		}
		return FailOutcome(entry, fmt.Errorf("%w: %s: %v", ErrDecode, entry.Path, err))
	}

	outDir, err := m.ensureOutDir(entry.Root)
	if err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
	}

	stem := strings.TrimSuffix(filepath.Base(entry.Path), filepath.Ext(entry.Path))
	dec, err := m.resolver.Resolve(filepath.Join(outDir, stem+"."+m.dirName))
	if err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrWrite, err))
	}

	if err := m.encode(dec.Path, img); err != nil {
		return FailOutcome(entry, err)
	}
	m.logger.Debug("converted", slog.String("from", entry.Path), slog.String("to", dec.Path))
	return SuccessOutcome(entry, dec.Path)
}

func (m *imageOptimizer) Finalize(ctx context.Context, report *Report) error { return nil }

// ensureOutDir creates the output directory on first use per root.
func (m *imageOptimizer) ensureOutDir(root string) (string, error) {
	outDir := m.outputDir
	if outDir == "" {
		outDir = filepath.Join(root, m.dirName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, done := m.created[outDir]; !done {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory %s: %w", outDir, err)
		}
		m.created[outDir] = struct{}{}
	}
	return outDir, nil
}

func (m *imageOptimizer) encode(dest string, img image.Image) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	w := bufio.NewWriter(out)

	switch m.format {
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(w, img)
	case "gif":
		err = gif.Encode(w, img, nil)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
