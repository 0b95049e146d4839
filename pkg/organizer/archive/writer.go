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

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Writer appends files to one archive container. Implementations are not
// safe for concurrent use; callers serialize access.
type Writer interface {
	// AddFile streams the file at srcPath into the archive under the
	// slash-separated entry name.
	AddFile(name, srcPath string) error
	// AddReader writes one entry from an in-memory header and reader.
	AddReader(e Entry, r io.Reader) error
	// Close finalizes the container. The archive is not valid until Close
	// returns nil.
	Close() error
}

// NewWriter creates the archive file at path using the given container
// format and compression level. Parent directories must already exist.
func NewWriter(path string, format Format, level Level) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}
	switch format {
	case Zip:
		return newZipWriter(f, level), nil
	case Tar:
		return &tarWriter{f: f, tw: tar.NewWriter(f)}, nil
	case TarGz:
		zw, err := gzip.NewWriterLevel(f, level.gzipLevel())
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("init gzip writer: %w", err)
		}
		return &tarWriter{f: f, comp: zw, tw: tar.NewWriter(zw)}, nil
	case TarZst:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(level.zstdLevel()))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("init zstd writer: %w", err)
		}
		return &tarWriter{f: f, comp: zw, tw: tar.NewWriter(zw)}, nil
	}
	f.Close()
	os.Remove(path)
	return nil, fmt.Errorf("unsupported archive format %q", format)
}

// --- tar ---

type tarWriter struct {
	f    *os.File
	comp io.WriteCloser // nil for plain tar
	tw   *tar.Writer
}

func (w *tarWriter) AddFile(name, srcPath string) error {
	src, info, err := openSource(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("build tar header for %s: %w", srcPath, err)
	}
	hdr.Name = filepath.ToSlash(name)
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header %s: %w", name, err)
	}
	if _, err := io.Copy(w.tw, src); err != nil {
		return fmt.Errorf("write tar entry %s: %w", name, err)
	}
	return nil
}

func (w *tarWriter) AddReader(e Entry, r io.Reader) error {
	hdr := &tar.Header{
		Name:     filepath.ToSlash(e.Name),
		Size:     e.Size,
		Mode:     int64(e.Mode.Perm()),
		ModTime:  e.ModTime,
		Typeflag: tar.TypeReg,
	}
	if e.IsDir {
		hdr.Typeflag = tar.TypeDir
		hdr.Size = 0
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header %s: %w", e.Name, err)
	}
	if e.IsDir {
		return nil
	}
	if _, err := io.Copy(w.tw, r); err != nil {
		return fmt.Errorf("write tar entry %s: %w", e.Name, err)
	}
	return nil
}

func (w *tarWriter) Close() error {
	err := w.tw.Close()
	if w.comp != nil {
		err = errors.Join(err, w.comp.Close())
	}
	return errors.Join(err, w.f.Close())
}

// --- zip ---

type zipWriter struct {
	f      *os.File
	zw     *zip.Writer
	method uint16
}

func newZipWriter(f *os.File, level Level) *zipWriter {
	w := &zipWriter{f: f, zw: zip.NewWriter(f), method: zip.Deflate}
	if level == LevelNone {
		w.method = zip.Store
	} else {
		// klauspost's flate replaces the stdlib deflate for speed.
		flateLevel := level.flateLevel()
		w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flateLevel)
		})
	}
	return w
}

func (w *zipWriter) AddFile(name, srcPath string) error {
	src, info, err := openSource(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("build zip header for %s: %w", srcPath, err)
	}
	hdr.Name = filepath.ToSlash(name)
	hdr.Method = w.method
	dst, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write zip header %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}

func (w *zipWriter) AddReader(e Entry, r io.Reader) error {
	name := filepath.ToSlash(e.Name)
	if e.IsDir {
		name += "/"
	}
	hdr := &zip.FileHeader{Name: name, Method: w.method, Modified: e.ModTime}
	hdr.SetMode(e.Mode)
	dst, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write zip header %s: %w", e.Name, err)
	}
	if e.IsDir {
		return nil
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("write zip entry %s: %w", e.Name, err)
	}
	return nil
}

func (w *zipWriter) Close() error {
	return errors.Join(w.zw.Close(), w.f.Close())
}

func openSource(srcPath string) (*os.File, fs.FileInfo, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", srcPath, err)
	}
	info, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", srcPath, err)
	}
	return src, info, nil
}
