// Package cli wires validated options into the organizer engine and turns
// the resulting report into terminal output and an exit status.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/tadeasf/file-organizer/internal/cli/hooks"
	"github.com/tadeasf/file-organizer/pkg/organizer"
)

// ErrFilesFailed reports that the run completed but some files failed and
// fail-fast was requested. The command layer maps it to a distinct exit
// code.
var ErrFilesFailed = errors.New("files failed")

// Run executes one organizer run and prints the final report. It returns a
// non-nil error for fatal failures, and ErrFilesFailed when FailOnError is
// set and any file failed.
func Run(ctx context.Context, opts organizer.Options, logger *slog.Logger) error {
	var bar hooks.ProgressBar
	if useProgressBar(opts) {
		bar = newProgressBar()
	}
	opts.Hooks = hooks.New(logger, opts.Verbose, bar)

	report, err := organizer.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, organizer.ErrCancelled) {
			logger.Warn("run cancelled", slog.Int("processed", report.Summary.Succeeded))
		}
		return err
	}

	if err := printReport(report, opts.OutputFormat); err != nil {
		return err
	}

	if opts.FailOnError && report.Summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrFilesFailed, report.Summary.Failed, report.Summary.Total)
	}
	return nil
}

// useProgressBar reports whether the interactive bar should render. It is
// suppressed in verbose mode, off a TTY, and for JSON output so stdout
// stays machine-readable without stderr noise interleaved.
func useProgressBar(opts organizer.Options) bool {
	if opts.Verbose || opts.OutputFormat == organizer.OutputFormatJSON {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func newProgressBar() hooks.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("organizing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

func printReport(report organizer.Report, format organizer.OutputFormat) error {
	if format == organizer.OutputFormatJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	}
	report.WriteText(os.Stdout)
	return nil
}
