// Package conflict decides what happens when a write target name is
// already occupied. Decisions are made against a snapshot of the target
// directory listing plus the names reserved earlier in the same run, never
// by re-statting the filesystem mid-decision, so a batch of concurrent
// writers cannot race against its own pending writes.
package conflict

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Policy is the rule governing occupied target names.
type Policy string

const (
	// PolicyRename appends an incrementing numeric suffix until a free name
	// is found. Deterministic for a given occupied-name set.
	PolicyRename Policy = "rename"
	// PolicySkip drops the incoming file; the resident entry wins.
	PolicySkip Policy = "skip"
	// PolicyOverwrite replaces the resident entry.
	PolicyOverwrite Policy = "overwrite"
	// PolicyAbort refuses the write.
	PolicyAbort Policy = "abort"
)

// Valid reports whether p names a supported policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyRename, PolicySkip, PolicyOverwrite, PolicyAbort:
		return true
	}
	return false
}

// Action is the resolved disposition for one target path.
type Action int

const (
	// ActionWrite means the caller may write to Decision.Path.
	ActionWrite Action = iota
	// ActionSkip means the incoming file is dropped.
	ActionSkip
	// ActionAbort means the abort policy was triggered.
	ActionAbort
)

// Decision is the result of resolving one target path.
type Decision struct {
	Action Action
	// Path is the final target path for ActionWrite. It equals the
	// requested path unless the rename policy picked a suffixed variant.
	Path string
}

// Resolver applies one Policy across a run. It keeps a per-directory
// reserved-name set so conflicts within the same batch see prior
// reservations before they hit disk. Directory state is guarded by a
// per-directory lock to preserve cross-directory parallelism. Safe for
// concurrent use.
type Resolver struct {
	policy Policy

	mu   sync.Mutex
	dirs map[string]*dirState
}

type dirState struct {
	mu     sync.Mutex
	loaded bool
	names  map[string]struct{}
}

// NewResolver creates a resolver applying the given policy.
func NewResolver(policy Policy) *Resolver {
	return &Resolver{
		policy: policy,
		dirs:   make(map[string]*dirState),
	}
}

// Policy returns the configured policy.
func (r *Resolver) Policy() Policy { return r.policy }

// Resolve decides the disposition of target. The first call touching a
// directory snapshots its listing; later calls in the same run only consult
// the snapshot plus names reserved by prior decisions.
func (r *Resolver) Resolve(target string) (Decision, error) {
	dir := filepath.Dir(target)
	base := filepath.Base(target)

	state := r.dir(dir)
	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.loaded {
		if err := state.load(dir); err != nil {
			return Decision{}, err
		}
	}

	if _, taken := state.names[base]; !taken {
		state.names[base] = struct{}{}
		return Decision{Action: ActionWrite, Path: target}, nil
	}

	switch r.policy {
	case PolicySkip:
		return Decision{Action: ActionSkip}, nil
	case PolicyOverwrite:
		return Decision{Action: ActionWrite, Path: target}, nil
	case PolicyAbort:
		return Decision{Action: ActionAbort}, nil
	case PolicyRename:
		name := r.nextFreeName(state, base)
		state.names[name] = struct{}{}
		return Decision{Action: ActionWrite, Path: filepath.Join(dir, name)}, nil
	}
	return Decision{}, fmt.Errorf("unknown conflict policy %q", r.policy)
}

// nextFreeName appends "-1", "-2", ... before the extension until the name
// is free in the snapshot. Counting always starts at 1, so the suffix is a
// pure function of the occupied-name set.
func (r *Resolver) nextFreeName(state *dirState, base string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, counter, ext)
		if _, taken := state.names[candidate]; !taken {
			return candidate
		}
	}
}

func (r *Resolver) dir(dir string) *dirState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.dirs[dir]
	if !ok {
		state = &dirState{names: make(map[string]struct{})}
		r.dirs[dir] = state
	}
	return state
}

// load snapshots the directory listing. A directory that does not exist yet
// snapshots as empty; it will be created by the first write.
func (s *dirState) load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("list target directory %s: %w", dir, err)
	}
	for _, e := range entries {
		s.names[e.Name()] = struct{}{}
	}
	s.loaded = true
	return nil
}
