package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SplitWriter writes a sequence of size-capped archive parts. The part
// boundary never divides a single file: when the next file would push the
// current part past the cap, the part is closed eagerly and the file opens
// the next one. A single file larger than the cap gets a part of its own.
//
// Accounting uses input byte sizes, so a part's payload never exceeds the
// cap; container framing adds a small constant per entry. Not safe for
// concurrent use.
type SplitWriter struct {
	dir      string
	stem     string
	format   Format
	level    Level
	partSize int64

	part    int
	written int64
	w       Writer
	parts   []string
}

// NewSplitWriter prepares a split writer that derives part names from
// outPath: "photos.tar.gz" yields "photos.part1.tar.gz",
// "photos.part2.tar.gz", ... No file is created until the first AddFile.
func NewSplitWriter(outPath string, format Format, level Level, partSize int64) *SplitWriter {
	base := filepath.Base(outPath)
	stem := strings.TrimSuffix(base, "."+format.Extension())
	return &SplitWriter{
		dir:      filepath.Dir(outPath),
		stem:     stem,
		format:   format,
		level:    level,
		partSize: partSize,
	}
}

// AddFile streams the file at srcPath (size bytes long) into the current
// part, rotating first if the file would overflow it. It returns the path
// of the part the file landed in.
func (s *SplitWriter) AddFile(name, srcPath string, size int64) (string, error) {
	if s.w == nil || (s.written > 0 && s.written+size > s.partSize) {
		if err := s.rotate(); err != nil {
			return "", err
		}
	}
	if err := s.w.AddFile(name, srcPath); err != nil {
		return "", err
	}
	s.written += size
	return s.parts[len(s.parts)-1], nil
}

func (s *SplitWriter) rotate() error {
	if s.w != nil {
		if err := s.w.Close(); err != nil {
			return fmt.Errorf("close part %s: %w", s.parts[len(s.parts)-1], err)
		}
	}
	s.part++
	s.written = 0
	partPath := filepath.Join(s.dir, fmt.Sprintf("%s.part%d.%s", s.stem, s.part, s.format.Extension()))
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.dir, err)
	}
	w, err := NewWriter(partPath, s.format, s.level)
	if err != nil {
		return err
	}
	s.w = w
	s.parts = append(s.parts, partPath)
	return nil
}

// Parts returns the paths of all parts opened so far, in order.
func (s *SplitWriter) Parts() []string { return s.parts }

// Close finalizes the current part. Safe to call with no parts written.
func (s *SplitWriter) Close() error {
	if s.w == nil {
		return nil
	}
	return s.w.Close()
}
