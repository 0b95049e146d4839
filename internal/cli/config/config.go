// Package config merges configuration from defaults, an optional YAML
// config file, FILE_ORGANIZER_* environment variables and command line
// flags, in ascending precedence, and produces validated organizer.Options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tadeasf/file-organizer/pkg/organizer"
)

const (
	EnvPrefix         = "FILE_ORGANIZER"
	DefaultConfigName = "file-organizer"
)

// flagBindings maps viper keys (the mapstructure tag names, doubling as
// config file keys) to the command line flag bound to each.
var flagBindings = map[string]string{
	"recursive":     "recursive",
	"verbose":       "verbose",
	"concurrency":   "concurrency",
	"ignore":        "ignore",
	"failOnError":   "fail-fast",
	"format":        "format",
	"output":        "output",
	"conflict":      "conflict",
	"action":        "action",
	"hash":          "hash",
	"strongHash":    "strong-hash",
	"duplicatesDir": "duplicates-dir",
	"reportFile":    "report-file",
	"mode":          "mode",
	"archiveFormat": "archive-format",
	"level":         "level",
	"splitSize":     "split-size",
	"outputFormat":  "output-format",
}

// Load builds the final Options for one run. Roots and the module kind
// come from the command layer, not from viper.
func Load(cfgFile string, flags *pflag.FlagSet) (organizer.Options, *slog.Logger, error) {
	var opts organizer.Options
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return opts, fallbackLogger(), fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, name := range flagBindings {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return opts, fallbackLogger(), fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}
	// Accept the dashed flag spelling as a config file key too.
	v.RegisterAlias("fail-fast", "failOnError")
	v.RegisterAlias("strong-hash", "strongHash")
	v.RegisterAlias("duplicates-dir", "duplicatesDir")
	v.RegisterAlias("report-file", "reportFile")
	v.RegisterAlias("archive-format", "archiveFormat")
	v.RegisterAlias("split-size", "splitSize")
	v.RegisterAlias("output-format", "outputFormat")

	if err := v.Unmarshal(&opts); err != nil {
		return opts, fallbackLogger(), fmt.Errorf("unmarshal configuration: %w", err)
	}

	// Boolean flags win over file and env values when set explicitly.
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("recursive") {
		opts.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("fail-fast") {
		opts.FailOnError, _ = flags.GetBool("fail-fast")
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	opts.Logger = handler

	if err := validate(&opts); err != nil {
		return opts, logger, err
	}
	return opts, logger, nil
}

func fallbackLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("recursive", false)
	v.SetDefault("verbose", false)
	v.SetDefault("concurrency", 0)
	v.SetDefault("ignore", []string{})
	v.SetDefault("failOnError", false)
	v.SetDefault("conflict", "rename")
	v.SetDefault("action", "report")
	v.SetDefault("mode", "create")
	v.SetDefault("level", "balanced")
	v.SetDefault("outputFormat", "text")
}

// validate covers the cross-module settings. Module-specific values are
// checked again by the module constructors against their own defaults.
func validate(opts *organizer.Options) error {
	if opts.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be >= 0, got %d", organizer.ErrConfigValidation, opts.Concurrency)
	}
	switch opts.OutputFormat {
	case organizer.OutputFormatText, organizer.OutputFormatJSON:
	default:
		return fmt.Errorf("%w: unknown output format %q", organizer.ErrConfigValidation, opts.OutputFormat)
	}
	if opts.SplitSizeStr != "" {
		size, err := ParseSize(opts.SplitSizeStr)
		if err != nil {
			return fmt.Errorf("%w: %v", organizer.ErrConfigValidation, err)
		}
		opts.SplitSize = size
	}
	return nil
}

// ParseSize parses a human-readable byte size such as "500KB", "1.5GB" or
// a bare byte count. Units are powers of 1024.
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(trimmed, "TB"):
		multiplier = 1 << 40
		trimmed = strings.TrimSuffix(trimmed, "TB")
	case strings.HasSuffix(trimmed, "GB"):
		multiplier = 1 << 30
		trimmed = strings.TrimSuffix(trimmed, "GB")
	case strings.HasSuffix(trimmed, "MB"):
		multiplier = 1 << 20
		trimmed = strings.TrimSuffix(trimmed, "MB")
	case strings.HasSuffix(trimmed, "KB"):
		multiplier = 1 << 10
		trimmed = strings.TrimSuffix(trimmed, "KB")
	case strings.HasSuffix(trimmed, "B"):
		trimmed = strings.TrimSuffix(trimmed, "B")
	}
	trimmed = strings.TrimSpace(trimmed)

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", s)
	}
	return int64(value * float64(multiplier)), nil
}
