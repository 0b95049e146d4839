package organizer

import "errors"

// Error categories returned by Run or attached to per-item outcomes.
// Callers can classify with errors.Is. Per-item errors never unwind past the
// worker pool; they are converted to Failed outcomes on the item that caused
// them. Only ErrConfigValidation is returned before any worker starts.
var (
	// ErrRead indicates a source file could not be read (permissions,
	// deleted after discovery, or other I/O failure).
	ErrRead = errors.New("failed to read file")

	// ErrWrite indicates an output file or directory could not be written.
	ErrWrite = errors.New("failed to write output")

	// ErrDecode indicates a file could not be decoded by the module's codec
	// (corrupt or misnamed input).
	ErrDecode = errors.New("failed to decode file")

	// ErrConflict indicates the abort-on-conflict policy was triggered by an
	// occupied target name.
	ErrConflict = errors.New("target name conflict")

	// ErrCancelled indicates the run was stopped before aggregate work could
	// complete. Per-item cancellations are skipped outcomes, not errors.
	ErrCancelled = errors.New("run cancelled")

	// ErrUnsupportedFormat indicates an unknown archive or image format was
	// requested or encountered.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrConfigValidation indicates the provided Options failed validation.
	// This is fatal and reported before any file is processed.
	ErrConfigValidation = errors.New("invalid configuration options")
)
