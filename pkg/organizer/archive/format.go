// Package archive implements the container codecs used by the archive
// module: zip and tar framing with gzip or zstd compression, plus a
// size-capped split writer for multi-part archives.
package archive

import (
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies an archive container format.
type Format string

const (
	Zip    Format = "zip"
	Tar    Format = "tar"
	TarGz  Format = "tar.gz"
	TarZst Format = "tar.zst"
)

// Valid reports whether f names a supported format.
func (f Format) Valid() bool {
	switch f {
	case Zip, Tar, TarGz, TarZst:
		return true
	}
	return false
}

// Extension returns the filename extension for f, without a leading dot.
func (f Format) Extension() string { return string(f) }

// DetectFormat derives the format from an archive filename.
func DetectFormat(name string) (Format, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return Zip, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return TarGz, true
	case strings.HasSuffix(lower, ".tar.zst"):
		return TarZst, true
	case strings.HasSuffix(lower, ".tar"):
		return Tar, true
	}
	return "", false
}

// Level is a coarse compression strength shared across codecs.
type Level string

const (
	LevelNone     Level = "none"
	LevelFast     Level = "fast"
	LevelBalanced Level = "balanced"
	LevelBest     Level = "best"
)

// Valid reports whether l names a supported level.
func (l Level) Valid() bool {
	switch l {
	case LevelNone, LevelFast, LevelBalanced, LevelBest:
		return true
	}
	return false
}

func (l Level) gzipLevel() int {
	switch l {
	case LevelNone:
		return gzip.NoCompression
	case LevelFast:
		return gzip.BestSpeed
	case LevelBest:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func (l Level) flateLevel() int {
	switch l {
	case LevelFast:
		return flate.BestSpeed
	case LevelBest:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func (l Level) zstdLevel() zstd.EncoderLevel {
	switch l {
	case LevelNone, LevelFast:
		return zstd.SpeedFastest
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
