package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tadeasf/file-organizer/internal/cli"
	"github.com/tadeasf/file-organizer/internal/cli/config"
	"github.com/tadeasf/file-organizer/pkg/organizer"
	"github.com/tadeasf/file-organizer/pkg/organizer/fingerprint"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "file-organizer",
	Short: "Batch file management: optimize images, flatten directories, deduplicate, archive.",
	Long: `file-organizer runs batch operations over directory trees with a
parallel processing core: files are discovered by a streaming walker,
transformed concurrently, and reported in deterministic discovery order.

Operations:
  image-optimize     Re-encode images into a target format
  directory-flatten  Move files from nested directories to the top level
  deduplicate        Find files with identical content
  archive            Create, extract, update or split archives`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command. Exit code 1 covers fatal and
// configuration errors; 2 means the run completed but files failed and
// --fail-fast was set.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, cli.ErrFilesFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// runModule is the shared RunE body: load config, select the module, run.
func runModule(kind organizer.ModuleKind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		opts.Module = kind
		opts.Roots = args
		return cli.Run(ctx, opts, logger)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default: ./file-organizer.yaml, $HOME/.config/file-organizer/)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) logging, disables the progress bar")
	rootCmd.PersistentFlags().BoolP("recursive", "r", false, "Descend into subdirectories")
	rootCmd.PersistentFlags().IntP("concurrency", "j", 0, "Number of parallel workers (0 for auto-detect CPU cores)")
	rootCmd.PersistentFlags().StringArray("ignore", []string{}, "Gitignore-style patterns to exclude (repeatable)")
	rootCmd.PersistentFlags().Bool("fail-fast", false, "Exit non-zero when any file failed")
	rootCmd.PersistentFlags().String("output-format", "text", `Final report format ("text", "json")`)

	imageCmd := &cobra.Command{
		Use:   "image-optimize <dir>...",
		Short: "Re-encode images into a target format",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runModule(organizer.ModuleImageOptimize),
	}
	imageCmd.Flags().StringP("format", "f", "jpeg", `Target image format ("jpeg", "png", "gif")`)
	imageCmd.Flags().StringP("output", "o", "", "Output directory (default: <root>/<format>/)")

	flattenCmd := &cobra.Command{
		Use:   "directory-flatten <dir>...",
		Short: "Move files from nested directories into the top level",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runModule(organizer.ModuleDirectoryFlatten),
	}
	flattenCmd.Flags().StringP("output", "o", "", "Destination directory (default: the first root)")
	flattenCmd.Flags().String("conflict", "rename", `Name collision policy ("rename", "skip")`)

	dedupeCmd := &cobra.Command{
		Use:   "deduplicate <dir>...",
		Short: "Find files with identical content",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runModule(organizer.ModuleDeduplicate),
	}
	dedupeCmd.Flags().String("action", "report", `What to do with duplicates ("report", "move", "remove")`)
	dedupeCmd.Flags().String("hash", string(fingerprint.DefaultWeak), "Candidate pre-filter hash algorithm")
	dedupeCmd.Flags().String("strong-hash", string(fingerprint.DefaultStrong), "Confirmation hash algorithm")
	dedupeCmd.Flags().String("duplicates-dir", "", `Quarantine directory for "move" (default: <root>/duplicates)`)
	dedupeCmd.Flags().String("report-file", "", "Write a YAML duplicate report to this path")

	archiveCmd := &cobra.Command{
		Use:   "archive <path>...",
		Short: "Create, extract, update or split archives",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runModule(organizer.ModuleArchive),
	}
	archiveCmd.Flags().String("mode", "create", `Archive operation ("create", "extract", "update", "split")`)
	archiveCmd.Flags().StringP("output", "o", "", "Archive path, or extraction directory")
	archiveCmd.Flags().String("archive-format", "", `Container format ("zip", "tar", "tar.gz", "tar.zst"; default from output name)`)
	archiveCmd.Flags().String("level", "balanced", `Compression level ("none", "fast", "balanced", "best")`)
	archiveCmd.Flags().String("split-size", "", `Maximum part size for split mode (e.g. "100MB")`)
	archiveCmd.Flags().String("conflict", "rename", `Extraction collision policy ("rename", "skip", "overwrite", "abort")`)

	rootCmd.AddCommand(imageCmd, flattenCmd, dedupeCmd, archiveCmd)
}
