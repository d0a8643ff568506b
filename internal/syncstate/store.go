package syncstate

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/synclite/synclite/internal/atomicfile"
)

// Store is the single writer of state.json: an in-memory path -> FileEntry
// map, mutated only through its own methods, durably persisted before each
// mutating call returns.
//
// All operations serialize on mu; Snapshot always returns a copy so
// callers never observe (or can mutate) the store's live map.
type Store struct {
	path string

	mu      sync.Mutex
	entries Map
}

// NewStore creates a store backed by the state file at path. The file is
// not read here; call Load to seed the in-memory map from disk.
func NewStore(path string) *Store {
	return &Store{path: path, entries: make(Map)}
}

// Load replaces the in-memory map with the contents of the state file.
// A missing or corrupt file yields an empty map rather than failing boot.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = make(Map)
			return nil
		}
		return fmt.Errorf("syncstate: read %s: %w", s.path, err)
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		// Corrupt state file: treat as empty rather than fail boot.
		s.entries = make(Map)
		return nil
	}

	if m == nil {
		m = make(Map)
	}
	s.entries = m
	return nil
}

// Add inserts or replaces the entry for path.
func (s *Store) Add(path string, entry FileEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[path] = entry
	return s.persistLocked()
}

// Update marks path live with hash, stamped with the current time.
func (s *Store) Update(path string, hash string) error {
	return s.Add(path, Live(hash, time.Now().UTC()))
}

// Delete marks path as a tombstone, stamped with the current time.
// Idempotent: deleting an already-deleted path just refreshes the
// timestamp, which is the intended last-writer-wins behavior.
func (s *Store) Delete(path string) error {
	return s.Add(path, Tombstone(time.Now().UTC()))
}

// Batch runs mutate against the live map under the store's lock, then
// persists once. mutate must not retain the map it is given.
func (s *Store) Batch(mutate func(Map)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(s.entries)
	return s.persistLocked()
}

// Snapshot returns a deep copy of the current map.
func (s *Store) Snapshot() Map {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries.Clone()
}

// Get returns a single entry, mirroring map's comma-ok idiom.
func (s *Store) Get(path string) (FileEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[path]
	return e, ok
}

// persistLocked writes the whole document, pretty-printed, to a sibling
// temp file and renames it into place. mu must be held.
//
// A bare os.WriteFile can leave state.json truncated if the process dies
// mid-write, so this always goes through write-temp-then-rename instead.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("syncstate: marshal: %w", err)
	}

	return atomicfile.Write(s.path, data, 0o644)
}
