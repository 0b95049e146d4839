package organizer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tadeasf/file-organizer/pkg/organizer"
	"github.com/tadeasf/file-organizer/pkg/organizer/fingerprint"
)

func dedupOpts(root string) organizer.Options {
	return organizer.Options{
		Module:      organizer.ModuleDeduplicate,
		Roots:       []string{root},
		Recursive:   true,
		Concurrency: 2,
		Logger:      testLogHandler(),
	}
}

// ageFile backdates a file so keeper selection by modification time is
// deterministic.
func ageFile(t *testing.T, path string, age time.Duration) {
	t.Helper()
	when := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, when, when))
}

func TestDedupReportsConfirmedGroups(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"original.txt":  "duplicate content",
		"copies/c1.txt": "duplicate content",
		"copies/c2.txt": "duplicate content",
		"unique.txt":    "one of a kind",
	})
	ageFile(t, filepath.Join(root, "original.txt"), 48*time.Hour)
	ageFile(t, filepath.Join(root, "copies", "c1.txt"), 24*time.Hour)

	report, err := organizer.Run(context.Background(), dedupOpts(root))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.Total)
	assert.Equal(t, 0, report.Summary.Failed)
	require.Len(t, report.Duplicates, 1)

	group := report.Duplicates[0]
	assert.Equal(t, filepath.Join(root, "original.txt"), group.Keeper, "oldest file is the keeper")
	assert.Len(t, group.Members, 3)
	assert.Equal(t, group.Keeper, group.Members[0])
	assert.Equal(t, int64(2*len("duplicate content")), group.WastedBytes)
	assert.True(t, strings.HasPrefix(group.Fingerprint, "sha-256:"))

	// Report action must not touch the filesystem.
	assert.Len(t, listTree(t, root), 4)
}

func TestDedupKeeperTieBreaksOnPath(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"b.txt": "same",
		"a.txt": "same",
	})
	when := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), when, when))
	require.NoError(t, os.Chtimes(filepath.Join(root, "b.txt"), when, when))

	report, err := organizer.Run(context.Background(), dedupOpts(root))
	require.NoError(t, err)

	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, filepath.Join(root, "a.txt"), report.Duplicates[0].Keeper)
}

func TestDedupSameSizeDifferentContent(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"a.bin": "exactly 16 bytes",
		"b.bin": "also 16 bytes!!!",
	})

	report, err := organizer.Run(context.Background(), dedupOpts(root))
	require.NoError(t, err)
	assert.Empty(t, report.Duplicates, "equal size alone is not a duplicate")
}

func TestDedupMoveQuarantinesNonKeepers(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"keep.txt":     "dup",
		"sub/lose.txt": "dup",
	})
	ageFile(t, filepath.Join(root, "keep.txt"), time.Hour)

	opts := dedupOpts(root)
	opts.DuplicateAction = organizer.DuplicateMove
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, report.ActionErrors)

	assert.FileExists(t, filepath.Join(root, "keep.txt"))
	assert.NoFileExists(t, filepath.Join(root, "sub", "lose.txt"))
	assert.FileExists(t, filepath.Join(root, "duplicates", "lose.txt"))
}

func TestDedupMoveCollidingBasenamesInQuarantine(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"keep.txt":    "dup",
		"s1/same.txt": "dup",
		"s2/same.txt": "dup",
	})
	ageFile(t, filepath.Join(root, "keep.txt"), time.Hour)

	opts := dedupOpts(root)
	opts.DuplicateAction = organizer.DuplicateMove
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, report.ActionErrors)

	quarantine := listTree(t, filepath.Join(root, "duplicates"))
	assert.Len(t, quarantine, 2)
	assert.Contains(t, quarantine, "same.txt")
	assert.Contains(t, quarantine, "same-1.txt")
}

func TestDedupRemoveDeletesNonKeepers(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"keep.txt": "dup",
		"lose.txt": "dup",
	})
	ageFile(t, filepath.Join(root, "keep.txt"), time.Hour)

	opts := dedupOpts(root)
	opts.DuplicateAction = organizer.DuplicateRemove
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, report.ActionErrors)

	assert.FileExists(t, filepath.Join(root, "keep.txt"))
	assert.NoFileExists(t, filepath.Join(root, "lose.txt"))
}

func TestDedupSkipsQuarantineDirectory(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"a.txt":            "dup",
		"duplicates/b.txt": "dup",
	})

	report, err := organizer.Run(context.Background(), dedupOpts(root))
	require.NoError(t, err)

	assert.Empty(t, report.Duplicates, "files already quarantined are not re-scanned")
	assert.Equal(t, 1, report.Summary.Skipped)
}

func TestDedupWritesYAMLReport(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"a.txt": "dup",
		"b.txt": "dup",
	})
	reportFile := filepath.Join(t.TempDir(), "dupes.yaml")

	opts := dedupOpts(root)
	opts.ReportFile = reportFile
	_, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	var doc struct {
		Algorithm string `yaml:"algorithm"`
		Groups    []struct {
			Keeper  string   `yaml:"keeper"`
			Members []string `yaml:"members"`
		} `yaml:"groups"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "sha-256", doc.Algorithm)
	require.Len(t, doc.Groups, 1)
	assert.Len(t, doc.Groups[0].Members, 2)
}

func TestDedupCustomAlgorithms(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"a.txt": "dup",
		"b.txt": "dup",
	})

	opts := dedupOpts(root)
	opts.WeakHash = fingerprint.FNV1A64
	opts.StrongHash = fingerprint.SHA3256
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Duplicates, 1)
	assert.True(t, strings.HasPrefix(report.Duplicates[0].Fingerprint, "sha3-256:"))
}

func TestDedupRejectsWeakConfirmationHash(t *testing.T) {
	root := t.TempDir()
	opts := dedupOpts(root)
	opts.StrongHash = fingerprint.XXH64
	_, err := organizer.Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, organizer.ErrConfigValidation)
}
