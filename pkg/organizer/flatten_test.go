package organizer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadeasf/file-organizer/pkg/organizer"
	"github.com/tadeasf/file-organizer/pkg/organizer/conflict"
)

func flattenOpts(root string) organizer.Options {
	return organizer.Options{
		Module:      organizer.ModuleDirectoryFlatten,
		Roots:       []string{root},
		Concurrency: 1,
		Logger:      testLogHandler(),
	}
}

func TestFlattenMovesNestedFilesToTopLevel(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"top.txt":      "top",
		"a/nested.txt": "n1",
		"a/b/deep.txt": "n2",
		"c/other.md":   "n3",
	})

	report, err := organizer.Run(context.Background(), flattenOpts(root))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.Total)
	assert.Equal(t, 3, report.Summary.Succeeded)
	assert.Equal(t, 1, report.Summary.Skipped, "top-level file is already in place")
	assert.Equal(t, 0, report.Summary.Failed)

	got := listTree(t, root)
	assert.Equal(t, "top", got["top.txt"])
	assert.Equal(t, "n1", got["nested.txt"])
	assert.Equal(t, "n2", got["deep.txt"])
	assert.Equal(t, "n3", got["other.md"])
	for rel := range got {
		assert.NotContains(t, rel, "/", "no file may remain nested: %s", rel)
	}
}

func TestFlattenRenamesCollidingBasenames(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"dup.txt":   "original",
		"a/dup.txt": "from a",
		"b/dup.txt": "from b",
	})

	report, err := organizer.Run(context.Background(), flattenOpts(root))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Failed)

	got := listTree(t, root)
	assert.Equal(t, "original", got["dup.txt"], "resident file keeps its name")
	// Walk order is lexical: a/dup.txt resolves first, then b/dup.txt.
	assert.Equal(t, "from a", got["dup-1.txt"])
	assert.Equal(t, "from b", got["dup-2.txt"])
}

func TestFlattenSkipPolicyLeavesCollisionsInPlace(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, map[string]string{
		"dup.txt":   "original",
		"a/dup.txt": "loser",
	})

	opts := flattenOpts(root)
	opts.ConflictPolicy = conflict.PolicySkip
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.Skipped)
	got := listTree(t, root)
	assert.Equal(t, "original", got["dup.txt"])
	assert.Equal(t, "loser", got["a/dup.txt"], "skipped file stays where it was")
}

func TestFlattenIntoSeparateOutputDir(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	createTree(t, root, map[string]string{
		"x/a.txt": "a",
		"y/b.txt": "b",
	})

	opts := flattenOpts(root)
	opts.OutputPath = out
	report, err := organizer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Succeeded)

	got := listTree(t, out)
	assert.Equal(t, map[string]string{"a.txt": "a", "b.txt": "b"}, got)
}

func TestFlattenRejectsUnsupportedPolicies(t *testing.T) {
	root := t.TempDir()
	for _, policy := range []conflict.Policy{conflict.PolicyOverwrite, conflict.PolicyAbort, conflict.Policy("merge")} {
		opts := flattenOpts(root)
		opts.ConflictPolicy = policy
		_, err := organizer.Run(context.Background(), opts)
		require.Error(t, err, string(policy))
		assert.ErrorIs(t, err, organizer.ErrConfigValidation)
	}
}
