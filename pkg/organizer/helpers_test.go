package organizer_test

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tadeasf/file-organizer/pkg/organizer"
)

// createTree materializes a relative-path -> content map under root.
func createTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for rel, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// listTree collects the relative paths of all regular files under root.
func listTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func testLogHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
}

// recordingHooks captures every hook invocation for assertions.
type recordingHooks struct {
	mu         sync.Mutex
	discovered []string
	updates    []statusUpdate
	completed  bool
	report     organizer.Report
}

type statusUpdate struct {
	path    string
	status  organizer.Status
	message string
}

func (h *recordingHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discovered = append(h.discovered, path)
	return nil
}

func (h *recordingHooks) OnFileStatusUpdate(path string, status organizer.Status, message string, duration time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, statusUpdate{path: path, status: status, message: message})
	return nil
}

func (h *recordingHooks) OnRunComplete(report organizer.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = true
	h.report = report
	return nil
}

func (h *recordingHooks) updatePaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	paths := make([]string, len(h.updates))
	for i, u := range h.updates {
		paths[i] = u.path
	}
	return paths
}

// entryChannel feeds a fixed slice of entries as the walker would.
func entryChannel(entries []organizer.FileEntry) <-chan organizer.FileEntry {
	ch := make(chan organizer.FileEntry)
	go func() {
		defer close(ch)
		for _, e := range entries {
			ch <- e
		}
	}()
	return ch
}

func makeEntries(n int) []organizer.FileEntry {
	entries := make([]organizer.FileEntry, n)
	for i := range entries {
		entries[i] = organizer.FileEntry{
			Path:    fmt.Sprintf("/src/file-%03d.txt", i),
			RelPath: fmt.Sprintf("file-%03d.txt", i),
			Root:    "/src",
			Seq:     i,
		}
	}
	return entries
}
