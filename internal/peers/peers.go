// Package peers owns PeersState: the leader id and the current follower
// id list, durably persisted to peers.json alongside state.json.
package peers

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/synclite/synclite/internal/atomicfile"
)

// State is the persisted view of the star topology as seen from this
// node: who the leader is (nil until a leader id has been recorded; the
// leader records its own id at startup) and which peer ids
// are currently known.
type State struct {
	Leader *string  `json:"leader"`
	Peers  []string `json:"peers"`
}

// Registry is the single writer of peers.json.
type Registry struct {
	path string

	mu    sync.Mutex
	state State
}

// NewRegistry creates a registry backed by the peers file at path. The
// file is not read here; call Load to seed the in-memory state from disk.
func NewRegistry(path string) *Registry {
	return &Registry{path: path, state: State{Peers: []string{}}}
}

// Load replaces the in-memory state with the contents of the peers file.
// A missing or corrupt file yields an empty state rather than failing
// boot.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.state = State{Peers: []string{}}
			return nil
		}
		return fmt.Errorf("peers: read %s: %w", r.path, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		r.state = State{Peers: []string{}}
		return nil
	}
	if s.Peers == nil {
		s.Peers = []string{}
	}
	r.state = s
	return nil
}

// SetLeader records the leader id, persists, and returns.
func (r *Registry) SetLeader(leaderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Leader = &leaderID
	return r.persistLocked()
}

// SetPeers replaces the peer list wholesale.
func (r *Registry) SetPeers(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Peers = append([]string(nil), ids...)
	return r.persistLocked()
}

// AddPeer appends id if not already present. Idempotent: adding an
// already-known peer is a no-op save.
func (r *Registry) AddPeer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.state.Peers {
		if p == id {
			return nil
		}
	}
	r.state.Peers = append(r.state.Peers, id)
	return r.persistLocked()
}

// RemovePeer drops id from the peer list if present.
func (r *Registry) RemovePeer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.state.Peers[:0]
	found := false
	for _, p := range r.state.Peers {
		if p == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	r.state.Peers = out
	if !found {
		return nil
	}
	return r.persistLocked()
}

// Snapshot returns a copy of the current state.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := r.state
	cp.Peers = append([]string(nil), r.state.Peers...)
	return cp
}

func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return fmt.Errorf("peers: marshal: %w", err)
	}
	return atomicfile.Write(r.path, data, 0o644)
}
