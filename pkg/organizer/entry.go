package organizer

import "time"

// FileEntry describes one file discovered by the walker. It is immutable
// once constructed; downstream stages only read it.
type FileEntry struct {
	// Path is the absolute path of the file.
	Path string
	// RelPath is the slash-separated path relative to Root.
	RelPath string
	// Root is the walk root this entry was discovered under.
	Root string
	// Size is the file size in bytes at discovery time.
	Size int64
	// ModTime is the modification time at discovery time.
	ModTime time.Time
	// Seq is the walk enumeration index. The pool re-serializes concurrent
	// completions back into Seq order before anything observes them.
	Seq int
}

// Outcome is the result of processing one FileEntry. Exactly one Outcome
// exists per walked entry in the final report, in walk order.
type Outcome struct {
	Entry      FileEntry
	Status     Status
	OutputPath string
	// Reason is set for skipped outcomes.
	Reason string
	// Err is set for failed outcomes.
	Err      error
	Duration time.Duration
}

// SuccessOutcome builds a success outcome for entry with the given output path.
func SuccessOutcome(entry FileEntry, outputPath string) Outcome {
	return Outcome{Entry: entry, Status: StatusSuccess, OutputPath: outputPath}
}

// SkipOutcome builds a skipped outcome for entry with the given reason.
func SkipOutcome(entry FileEntry, reason string) Outcome {
	return Outcome{Entry: entry, Status: StatusSkipped, Reason: reason}
}

// FailOutcome builds a failed outcome for entry wrapping err.
func FailOutcome(entry FileEntry, err error) Outcome {
	return Outcome{Entry: entry, Status: StatusFailed, Err: err}
}
