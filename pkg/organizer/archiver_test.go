package organizer_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadeasf/file-organizer/pkg/organizer"
	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"
)

func archiveOpts(mode organizer.ArchiveMode, roots ...string) organizer.Options {
	return organizer.Options{
		Module:      organizer.ModuleArchive,
		Roots:       roots,
		Recursive:   true,
		Concurrency: 2,
		ArchiveMode: mode,
		Logger:      testLogHandler(),
	}
}

func TestArchiveCreateAndExtractRoundTrip(t *testing.T) {
	src := t.TempDir()
	tree := map[string]string{
		"readme.md":     "hello",
		"docs/guide.md": "guide",
		"data/x/y.bin":  "payload",
	}
	createTree(t, src, tree)

	archivePath := filepath.Join(t.TempDir(), "backup.tar.gz")
	opts := archiveOpts(organizer.ArchiveCreate, src)
	opts.OutputPath = archivePath
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Succeeded)
	assert.Equal(t, []string{archivePath}, report.Parts)
	require.FileExists(t, archivePath)

	dest := t.TempDir()
	extractOpts := archiveOpts(organizer.ArchiveExtract, archivePath)
	extractOpts.OutputPath = dest
	report, err = organizer.Run(context.Background(), extractOpts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Succeeded, "the archive itself is the processed item")

	assert.Equal(t, tree, listTree(t, dest))
}

func TestArchiveCreateZipDefaultsNextToRoot(t *testing.T) {
	parent := t.TempDir()
	src := filepath.Join(parent, "photos")
	createTree(t, src, map[string]string{"a.txt": "a"})

	report, err := organizer.Run(context.Background(), archiveOpts(organizer.ArchiveCreate, src))
	require.NoError(t, err)

	want := filepath.Join(parent, "photos.zip")
	assert.Equal(t, []string{want}, report.Parts)
	assert.FileExists(t, want)
}

func TestArchiveCreateSkipsItsOwnOutput(t *testing.T) {
	// Output inside the walked root: the archive must not swallow itself.
	src := t.TempDir()
	createTree(t, src, map[string]string{"a.txt": "a", "b.txt": "b"})

	archivePath := filepath.Join(src, "self.zip")
	opts := archiveOpts(organizer.ArchiveCreate, src)
	opts.OutputPath = archivePath
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Succeeded)

	dest := t.TempDir()
	extractOpts := archiveOpts(organizer.ArchiveExtract, archivePath)
	extractOpts.OutputPath = dest
	_, err = organizer.Run(context.Background(), extractOpts)
	require.NoError(t, err)
	got := listTree(t, dest)
	assert.NotContains(t, got, "self.zip")
	assert.Len(t, got, 2)
}

func TestArchiveExtractConflictPolicies(t *testing.T) {
	src := t.TempDir()
	createTree(t, src, map[string]string{"a.txt": "from archive"})
	archivePath := filepath.Join(t.TempDir(), "x.zip")
	opts := archiveOpts(organizer.ArchiveCreate, src)
	opts.OutputPath = archivePath
	_, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	t.Run("rename", func(t *testing.T) {
		dest := t.TempDir()
		createTree(t, dest, map[string]string{"a.txt": "resident"})
		ex := archiveOpts(organizer.ArchiveExtract, archivePath)
		ex.OutputPath = dest
		report, err := organizer.Run(context.Background(), ex)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Summary.Succeeded)
		got := listTree(t, dest)
		assert.Equal(t, "resident", got["a.txt"])
		assert.Equal(t, "from archive", got["a-1.txt"])
	})

	t.Run("skip", func(t *testing.T) {
		dest := t.TempDir()
		createTree(t, dest, map[string]string{"a.txt": "resident"})
		ex := archiveOpts(organizer.ArchiveExtract, archivePath)
		ex.OutputPath = dest
		ex.ConflictPolicy = conflict.PolicySkip
		_, err := organizer.Run(context.Background(), ex)
		require.NoError(t, err)
		got := listTree(t, dest)
		assert.Equal(t, map[string]string{"a.txt": "resident"}, got)
	})

	t.Run("overwrite", func(t *testing.T) {
		dest := t.TempDir()
		createTree(t, dest, map[string]string{"a.txt": "resident"})
		ex := archiveOpts(organizer.ArchiveExtract, archivePath)
		ex.OutputPath = dest
		ex.ConflictPolicy = conflict.PolicyOverwrite
		_, err := organizer.Run(context.Background(), ex)
		require.NoError(t, err)
		got := listTree(t, dest)
		assert.Equal(t, map[string]string{"a.txt": "from archive"}, got)
	})

	t.Run("abort", func(t *testing.T) {
		dest := t.TempDir()
		createTree(t, dest, map[string]string{"a.txt": "resident"})
		ex := archiveOpts(organizer.ArchiveExtract, archivePath)
		ex.OutputPath = dest
		ex.ConflictPolicy = conflict.PolicyAbort
		report, err := organizer.Run(context.Background(), ex)
		require.NoError(t, err, "abort fails the item, not the run")
		assert.Equal(t, 1, report.Summary.Failed)
		got := listTree(t, dest)
		assert.Equal(t, "resident", got["a.txt"])
	})
}

func TestArchiveSplitMode(t *testing.T) {
	src := t.TempDir()
	createTree(t, src, map[string]string{
		"a.bin": strings.Repeat("a", 300),
		"b.bin": strings.Repeat("b", 300),
		"c.bin": strings.Repeat("c", 300),
	})

	archivePath := filepath.Join(t.TempDir(), "set.tar")
	opts := archiveOpts(organizer.ArchiveSplit, src)
	opts.OutputPath = archivePath
	opts.SplitSize = 600
	opts.Concurrency = 1
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Succeeded)
	require.Len(t, report.Parts, 2)
	assert.Equal(t, filepath.Join(filepath.Dir(archivePath), "set.part1.tar"), report.Parts[0])
	for _, part := range report.Parts {
		assert.FileExists(t, part)
	}
}

func TestArchiveSplitRequiresSize(t *testing.T) {
	src := t.TempDir()
	opts := archiveOpts(organizer.ArchiveSplit, src)
	_, err := organizer.Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, organizer.ErrConfigValidation)
}

func TestArchiveUpdateReplacesAndAppends(t *testing.T) {
	// Build the initial archive from v1 of the tree.
	src := t.TempDir()
	createTree(t, src, map[string]string{
		"keep.txt":   "unchanged",
		"change.txt": "old content",
	})
	archivePath := filepath.Join(t.TempDir(), "data.zip")
	opts := archiveOpts(organizer.ArchiveCreate, src)
	opts.OutputPath = archivePath
	_, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	// v2: one entry rewritten, one brand new; keep.txt is gone from the
	// walked tree but must survive inside the archive.
	src2 := t.TempDir()
	createTree(t, src2, map[string]string{
		"change.txt": "new content",
		"added.txt":  "appended",
	})
	update := archiveOpts(organizer.ArchiveUpdate, src2)
	update.OutputPath = archivePath
	report, err := organizer.Run(context.Background(), update)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Succeeded)

	dest := t.TempDir()
	ex := archiveOpts(organizer.ArchiveExtract, archivePath)
	ex.OutputPath = dest
	_, err = organizer.Run(context.Background(), ex)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"keep.txt":   "unchanged",
		"change.txt": "new content",
		"added.txt":  "appended",
	}, listTree(t, dest))
}

func TestArchiveUpdateRequiresExistingArchive(t *testing.T) {
	src := t.TempDir()
	opts := archiveOpts(organizer.ArchiveUpdate, src)
	opts.OutputPath = filepath.Join(t.TempDir(), "missing.zip")
	_, err := organizer.Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, organizer.ErrConfigValidation)
}

func TestArchiveExtractMatchesOnlyArchives(t *testing.T) {
	dir := t.TempDir()
	src := t.TempDir()
	createTree(t, src, map[string]string{"a.txt": "a"})
	opts := archiveOpts(organizer.ArchiveCreate, src)
	opts.OutputPath = filepath.Join(dir, "real.zip")
	_, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	createTree(t, dir, map[string]string{"plain.txt": "not an archive"})

	ex := archiveOpts(organizer.ArchiveExtract, dir)
	ex.OutputPath = t.TempDir()
	report, err := organizer.Run(context.Background(), ex)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Total, "plain files are not walked in extract mode")
}

func TestArchiveRejectsInvalidConfig(t *testing.T) {
	src := t.TempDir()

	bad := archiveOpts(organizer.ArchiveMode("compress"), src)
	_, err := organizer.Run(context.Background(), bad)
	assert.ErrorIs(t, err, organizer.ErrConfigValidation)

	badFormat := archiveOpts(organizer.ArchiveCreate, src)
	badFormat.ArchiveFormat = "rar"
	_, err = organizer.Run(context.Background(), badFormat)
	assert.ErrorIs(t, err, organizer.ErrConfigValidation)

	badLevel := archiveOpts(organizer.ArchiveCreate, src)
	badLevel.Level = "ultra"
	_, err = organizer.Run(context.Background(), badLevel)
	assert.ErrorIs(t, err, organizer.ErrConfigValidation)
}

func TestArchiveCreateEmptyTreeWritesNothing(t *testing.T) {
	src := t.TempDir()
	archivePath := filepath.Join(t.TempDir(), "empty.zip")
	opts := archiveOpts(organizer.ArchiveCreate, src)
	opts.OutputPath = archivePath
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Total)
	assert.NoFileExists(t, archivePath)
}
