package organizer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"
	"github.com/tadeasf/file-organizer/pkg/organizer/fingerprint"
)

// clusterKey groups candidate duplicates by size and quick weak hash, so
// phase one never reads more than the head of any file.
type clusterKey struct {
	size  int64
	quick string
}

// deduplicator finds files with identical content in two phases: the
// per-file pass clusters by (size, quick weak hash), and finalize confirms
// clusters with a strong hash before applying the configured action.
// Singleton clusters are never strong-hashed.
type deduplicator struct {
	logger      *slog.Logger
	weak        fingerprint.Algorithm
	strong      fingerprint.Algorithm
	action      DuplicateAction
	quarantine  string
	reportFile  string
	concurrency int
	resolver    *conflict.Resolver

	mu       sync.Mutex
	clusters map[clusterKey][]FileEntry
}

func newDeduplicator(opts *Options, logger *slog.Logger) (Module, error) {
	weak := opts.WeakHash
	if weak == "" {
		weak = fingerprint.DefaultWeak
	}
	strong := opts.StrongHash
	if strong == "" {
		strong = fingerprint.DefaultStrong
	}
	if !weak.Valid() {
		return nil, fmt.Errorf("%w: unknown hash algorithm %q (supported: %s)",
			ErrConfigValidation, weak, strings.Join(fingerprint.Supported(), ", "))
	}
	if !strong.Valid() || !strong.Strong() {
		return nil, fmt.Errorf("%w: confirmation hash must be cryptographic, got %q", ErrConfigValidation, strong)
	}

	action := opts.DuplicateAction
	if action == "" {
		action = DuplicateReport
	}
	switch action {
	case DuplicateReport, DuplicateMove, DuplicateRemove:
	default:
		return nil, fmt.Errorf("%w: unknown duplicate action %q", ErrConfigValidation, action)
	}

	quarantine := opts.DuplicatesDir
	if quarantine == "" {
		quarantine = filepath.Join(opts.Roots[0], "duplicates")
	}
	abs, err := filepath.Abs(quarantine)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve duplicates directory %q: %v", ErrConfigValidation, quarantine, err)
	}

	return &deduplicator{
		logger:      logger.With(slog.String("component", "deduplicator")),
		weak:        weak,
		strong:      strong,
		action:      action,
		quarantine:  abs,
		reportFile:  opts.ReportFile,
		concurrency: opts.Concurrency,
		resolver:    conflict.NewResolver(conflict.PolicyRename),
		clusters:    make(map[clusterKey][]FileEntry),
	}, nil
}

func (m *deduplicator) Name() string { return string(ModuleDeduplicate) }

func (m *deduplicator) Match(relPath string, d fs.DirEntry) bool {
	return d.Type().IsRegular()
}

func (m *deduplicator) Process(ctx context.Context, entry FileEntry) Outcome {
	if entry.Path == m.quarantine || strings.HasPrefix(entry.Path, m.quarantine+string(os.PathSeparator)) {
		return SkipOutcome(entry, "inside duplicates directory")
	}

	fp, err := fingerprint.Quick(entry.Path, m.weak)
	if err != nil {
		return FailOutcome(entry, fmt.Errorf("%w: %v", ErrRead, err))
	}

	key := clusterKey{size: entry.Size, quick: fp.String()}
	m.mu.Lock()
	m.clusters[key] = append(m.clusters[key], entry)
	m.mu.Unlock()
	return SuccessOutcome(entry, "")
}

// Finalize confirms candidate clusters with the strong hash, builds the
// duplicate groups and applies the configured action to non-keepers.
func (m *deduplicator) Finalize(ctx context.Context, report *Report) error {
	var candidates [][]FileEntry
	for _, cluster := range m.clusters {
		if len(cluster) > 1 {
			candidates = append(candidates, cluster)
		}
	}
	m.logger.Debug("confirming candidate clusters", slog.Int("count", len(candidates)))

	var (
		confirmMu sync.Mutex
		byDigest  = make(map[string][]FileEntry)
		hashErrs  []ItemError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, cluster := range candidates {
		cluster := cluster
		g.Go(func() error {
			for _, entry := range cluster {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fp, err := fingerprint.File(entry.Path, m.strong)
				confirmMu.Lock()
				if err != nil {
					hashErrs = append(hashErrs, ItemError{Path: entry.Path, Error: err.Error()})
				} else {
					byDigest[fp.String()] = append(byDigest[fp.String()], entry)
				}
				confirmMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: duplicate confirmation interrupted", ErrCancelled)
	}

	groups := buildGroups(byDigest)
	actionErrs := m.applyAction(groups)

	report.Duplicates = groups
	report.ActionErrors = append(hashErrs, actionErrs...)

	if m.reportFile != "" {
		if err := m.writeReportFile(groups); err != nil {
			return err
		}
	}
	return nil
}

// buildGroups turns confirmed digests into ordered duplicate groups.
// Members are ordered by modification time, then path; the first member is
// the keeper. Singleton digests are not duplicates and are dropped.
func buildGroups(byDigest map[string][]FileEntry) []DuplicateGroup {
	var groups []DuplicateGroup
	for digest, members := range byDigest {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if !members[i].ModTime.Equal(members[j].ModTime) {
				return members[i].ModTime.Before(members[j].ModTime)
			}
			return members[i].Path < members[j].Path
		})
		g := DuplicateGroup{
			Fingerprint: digest,
			Keeper:      members[0].Path,
		}
		for i, member := range members {
			g.Members = append(g.Members, member.Path)
			if i > 0 {
				g.WastedBytes += member.Size
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Keeper < groups[j].Keeper })
	return groups
}

func (m *deduplicator) applyAction(groups []DuplicateGroup) []ItemError {
	if m.action == DuplicateReport {
		return nil
	}

	var errs []ItemError
	fail := func(path string, err error) {
		m.logger.Warn("duplicate action failed", slog.String("path", path), slog.String("error", err.Error()))
		errs = append(errs, ItemError{Path: path, Error: err.Error()})
	}

	if m.action == DuplicateMove {
		if err := os.MkdirAll(m.quarantine, 0o755); err != nil {
			return []ItemError{{Path: m.quarantine, Error: err.Error()}}
		}
	}
	for _, g := range groups {
		for _, member := range g.Members {
			if member == g.Keeper {
				continue
			}
			switch m.action {
			case DuplicateRemove:
				if err := os.Remove(member); err != nil {
					fail(member, err)
				}
			case DuplicateMove:
				dec, err := m.resolver.Resolve(filepath.Join(m.quarantine, filepath.Base(member)))
				if err != nil {
					fail(member, err)
					continue
				}
				if err := moveFile(member, dec.Path); err != nil {
					fail(member, err)
				}
			}
		}
	}
	return errs
}

func (m *deduplicator) writeReportFile(groups []DuplicateGroup) error {
	doc := struct {
		Generated time.Time        `yaml:"generated"`
		Algorithm string           `yaml:"algorithm"`
		Groups    []DuplicateGroup `yaml:"groups"`
	}{
		Generated: time.Now().UTC(),
		Algorithm: string(m.strong),
		Groups:    groups,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal duplicate report: %w", err)
	}
	if err := os.WriteFile(m.reportFile, data, 0o644); err != nil {
		return fmt.Errorf("%w: duplicate report: %v", ErrWrite, err)
	}
	return nil
}
