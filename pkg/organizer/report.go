package organizer

import (
	"fmt"
	"io"
	"time"
)

// Report summarizes the result of a single Run.
type Report struct {
	Summary    Summary       `json:"summary"`
	Outcomes   []OutcomeInfo `json:"outcomes"`
	WalkErrors []ItemError   `json:"walkErrors,omitempty"`
	// Duplicates is populated by the deduplicate module.
	Duplicates []DuplicateGroup `json:"duplicates,omitempty"`
	// ActionErrors lists non-fatal failures from the finalize phase, such
	// as a duplicate that could not be moved.
	ActionErrors []ItemError `json:"actionErrors,omitempty"`
	// Parts lists the output parts written by a split archive run.
	Parts []string `json:"parts,omitempty"`
}

// Summary contains aggregated statistics for a Run.
type Summary struct {
	Module          string    `json:"module"`
	Roots           []string  `json:"roots"`
	Total           int       `json:"total"`
	Succeeded       int       `json:"succeeded"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	Cancelled       int       `json:"cancelled"`
	WalkErrors      int       `json:"walkErrors"`
	Concurrency     int       `json:"concurrency"`
	DurationSeconds float64   `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

// OutcomeInfo is the report form of one processing outcome.
type OutcomeInfo struct {
	Path       string `json:"path"`
	Status     Status `json:"status"`
	OutputPath string `json:"outputPath,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// ItemError pairs a path with the error it produced.
type ItemError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// DuplicateGroup is a confirmed set of files with identical content. The
// keeper is the retained representative; members are ordered by
// modification time, then path.
type DuplicateGroup struct {
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	Keeper      string   `json:"keeper" yaml:"keeper"`
	Members     []string `json:"members" yaml:"members"`
	WastedBytes int64    `json:"wastedBytes" yaml:"wastedBytes"`
}

// buildReport assembles the report from the ordered outcomes.
func buildReport(opts *Options, outcomes []Outcome, walkErrs []ItemError, startTime time.Time) Report {
	rep := Report{
		Summary: Summary{
			Module:          string(opts.Module),
			Roots:           opts.Roots,
			Total:           len(outcomes),
			WalkErrors:      len(walkErrs),
			Concurrency:     opts.Concurrency,
			DurationSeconds: time.Since(startTime).Seconds(),
			Timestamp:       time.Now().UTC(),
		},
		Outcomes:   make([]OutcomeInfo, 0, len(outcomes)),
		WalkErrors: walkErrs,
	}
	for _, oc := range outcomes {
		info := OutcomeInfo{
			Path:       oc.Entry.Path,
			Status:     oc.Status,
			OutputPath: oc.OutputPath,
			Reason:     oc.Reason,
			DurationMs: oc.Duration.Milliseconds(),
		}
		switch oc.Status {
		case StatusSuccess:
			rep.Summary.Succeeded++
		case StatusSkipped:
			rep.Summary.Skipped++
			if oc.Reason == cancelledReason {
				rep.Summary.Cancelled++
			}
		case StatusFailed:
			rep.Summary.Failed++
			if oc.Err != nil {
				info.Error = oc.Err.Error()
			}
		}
		rep.Outcomes = append(rep.Outcomes, info)
	}
	return rep
}

// WriteText renders the human-readable run summary. The format is
// free-form and not a stable machine interface.
func (r Report) WriteText(w io.Writer) {
	s := r.Summary
	fmt.Fprintf(w, "%s: %d files in %.2fs (%d workers)\n", s.Module, s.Total, s.DurationSeconds, s.Concurrency)
	fmt.Fprintf(w, "  succeeded: %d, skipped: %d, failed: %d\n", s.Succeeded, s.Skipped, s.Failed)
	if s.Cancelled > 0 {
		fmt.Fprintf(w, "  cancelled before dispatch: %d\n", s.Cancelled)
	}
	if len(r.Parts) > 0 {
		fmt.Fprintf(w, "  parts written:\n")
		for _, p := range r.Parts {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}
	if len(r.Duplicates) > 0 {
		var wasted int64
		for _, g := range r.Duplicates {
			wasted += g.WastedBytes
		}
		fmt.Fprintf(w, "  duplicate groups: %d (%d reclaimable bytes)\n", len(r.Duplicates), wasted)
		for _, g := range r.Duplicates {
			fmt.Fprintf(w, "    keep %s\n", g.Keeper)
			for _, m := range g.Members {
				if m != g.Keeper {
					fmt.Fprintf(w, "      dup  %s\n", m)
				}
			}
		}
	}
	if len(r.WalkErrors) > 0 {
		fmt.Fprintf(w, "  traversal errors:\n")
		for _, we := range r.WalkErrors {
			fmt.Fprintf(w, "    %s: %s\n", we.Path, we.Error)
		}
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, "  failures:\n")
		for _, oc := range r.Outcomes {
			if oc.Status == StatusFailed {
				fmt.Fprintf(w, "    %s: %s\n", oc.Path, oc.Error)
			}
		}
	}
	for _, ae := range r.ActionErrors {
		fmt.Fprintf(w, "  finalize error: %s: %s\n", ae.Path, ae.Error)
	}
}
