package archive

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Entry describes one archive member.
type Entry struct {
	// Name is the slash-separated path inside the container.
	Name    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

// Reader iterates the members of one archive container in container order.
type Reader interface {
	// Next advances to the next member and returns its metadata and a
	// reader over its content. It returns io.EOF after the last member.
	// The content reader is valid only until the next call to Next.
	Next() (Entry, io.Reader, error)
	Close() error
}

// OpenReader opens the archive at path, deriving the format from the
// filename.
func OpenReader(path string) (Reader, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return nil, fmt.Errorf("cannot detect archive format of %s", path)
	}
	if format == Zip {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("open zip %s: %w", path, err)
		}
		return &zipReader{zr: zr}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	switch format {
	case Tar:
		return &tarReader{f: f, tr: tar.NewReader(f)}, nil
	case TarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		return &tarReader{f: f, decomp: gz, tr: tar.NewReader(gz)}, nil
	case TarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		return &tarReader{f: f, decomp: zr.IOReadCloser(), tr: tar.NewReader(zr)}, nil
	}
	f.Close()
	return nil, fmt.Errorf("unsupported archive format %q", format)
}

type tarReader struct {
	f      *os.File
	decomp io.ReadCloser // nil for plain tar
	tr     *tar.Reader
}

func (r *tarReader) Next() (Entry, io.Reader, error) {
	for {
		hdr, err := r.tr.Next()
		if err != nil {
			return Entry{}, nil, err
		}
		switch hdr.Typeflag {
		case tar.TypeReg, tar.TypeDir:
			info := hdr.FileInfo()
			return Entry{
				Name:    hdr.Name,
				Size:    hdr.Size,
				Mode:    info.Mode(),
				ModTime: hdr.ModTime,
				IsDir:   hdr.Typeflag == tar.TypeDir,
			}, r.tr, nil
		default:
			// Symlinks, devices and other special members are not restored.
			continue
		}
	}
}

func (r *tarReader) Close() error {
	var err error
	if r.decomp != nil {
		err = r.decomp.Close()
	}
	return errors.Join(err, r.f.Close())
}

type zipReader struct {
	zr   *zip.ReadCloser
	idx  int
	open io.ReadCloser
}

func (r *zipReader) Next() (Entry, io.Reader, error) {
	if r.open != nil {
		r.open.Close()
		r.open = nil
	}
	if r.idx >= len(r.zr.File) {
		return Entry{}, nil, io.EOF
	}
	f := r.zr.File[r.idx]
	r.idx++

	info := f.FileInfo()
	e := Entry{
		Name:    f.Name,
		Size:    int64(f.UncompressedSize64),
		Mode:    info.Mode(),
		ModTime: f.Modified,
		IsDir:   info.IsDir(),
	}
	if e.IsDir {
		return e, nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return Entry{}, nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	r.open = rc
	return e, rc, nil
}

func (r *zipReader) Close() error {
	var err error
	if r.open != nil {
		err = r.open.Close()
	}
	return errors.Join(err, r.zr.Close())
}

// DestFunc decides where one extracted member lands. Returning ok=false
// skips the member without error.
type DestFunc func(e Entry) (dest string, ok bool, err error)

// Extract streams the members of the archive at path to disk. The decide
// callback resolves the destination of each regular file, letting the
// caller apply its conflict policy per extracted path. Member names that
// would escape the destination root are rejected.
func Extract(path string, decide DestFunc) (written []string, skipped int, err error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	for {
		e, content, err := r.Next()
		if err == io.EOF {
			return written, skipped, nil
		}
		if err != nil {
			return written, skipped, fmt.Errorf("read archive %s: %w", path, err)
		}
		if !filepath.IsLocal(filepath.FromSlash(e.Name)) {
			return written, skipped, fmt.Errorf("archive %s: entry %q escapes destination", path, e.Name)
		}
		if e.IsDir {
			continue
		}
		dest, ok, err := decide(e)
		if err != nil {
			return written, skipped, err
		}
		if !ok {
			skipped++
			continue
		}
		if err := writeEntry(dest, e, content); err != nil {
			return written, skipped, err
		}
		written = append(written, dest)
	}
}

func writeEntry(dest string, e Entry, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}
	mode := e.Mode.Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", dest, err)
	}
	return out.Close()
}
