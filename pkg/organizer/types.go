package organizer

// Status defines the possible processing states of a file during a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// ModuleKind identifies which transformation module drives a run.
// The set is closed; the engine constructs the matching implementation.
type ModuleKind string

const (
	ModuleImageOptimize    ModuleKind = "image-optimize"
	ModuleDirectoryFlatten ModuleKind = "directory-flatten"
	ModuleDeduplicate      ModuleKind = "deduplicate"
	ModuleArchive          ModuleKind = "archive"
)

// DuplicateAction defines what the deduplicator does with confirmed
// non-keeper duplicates.
type DuplicateAction string

const (
	// DuplicateReport lists duplicates without touching the filesystem.
	DuplicateReport DuplicateAction = "report"
	// DuplicateMove relocates duplicates into the quarantine directory.
	DuplicateMove DuplicateAction = "move"
	// DuplicateRemove deletes duplicates.
	DuplicateRemove DuplicateAction = "remove"
)

// ArchiveMode selects the archive module operation.
type ArchiveMode string

const (
	ArchiveCreate  ArchiveMode = "create"
	ArchiveExtract ArchiveMode = "extract"
	ArchiveUpdate  ArchiveMode = "update"
	ArchiveSplit   ArchiveMode = "split"
)

// OutputFormat defines the format of the final summary printed to stdout.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// cancelledReason is the skip reason recorded for entries that were
// discovered but never dispatched because the run was stopped.
const cancelledReason = "cancelled"
