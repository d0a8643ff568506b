// Package connmgr owns the write half of every active peer connection
// and implements send/broadcast fan-out with partial-failure eviction.
package connmgr

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/synclite/synclite/internal/wire"
)

// Writer is satisfied by anything that can frame and flush a message;
// net.Conn and any io.Writer wrapped by wire.WriteFrame qualify.
type Writer interface {
	io.Writer
}

// Manager tracks one Writer per connected peer id and serializes sends to
// each so concurrent broadcast/send calls never interleave frames on the
// same connection.
type Manager struct {
	mu    sync.Mutex
	conns map[string]*connection
}

type connection struct {
	mu sync.Mutex
	w  Writer
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{conns: make(map[string]*connection)}
}

// Add registers w as the writer for peerID, replacing any prior writer
// for the same id.
func (m *Manager) Add(peerID string, w Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[peerID] = &connection{w: w}
}

// Remove drops peerID's writer, if any.
func (m *Manager) Remove(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, peerID)
}

// Send writes message to peerID's connection. Returns an error (without
// evicting the connection) if peerID is not connected or the write fails;
// callers that want eviction-on-failure semantics should call Remove
// themselves, matching what Broadcast/BroadcastExcept do internally.
func (m *Manager) Send(peerID string, message wire.ServerMessage) error {
	m.mu.Lock()
	c, ok := m.conns[peerID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("connmgr: no active connection to peer %s", peerID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := wire.WriteServerMessage(c.w, message); err != nil {
		return fmt.Errorf("connmgr: send to peer %s: %w", peerID, err)
	}
	return nil
}

// Broadcast sends message to every connected peer. Peers whose write
// fails are evicted from the manager and returned in failed.
func (m *Manager) Broadcast(message wire.ServerMessage) (failed []string) {
	return m.BroadcastExcept(message, mapset.NewSet[string]())
}

// BroadcastExcept sends message to every connected peer not present in
// exclude (used by the leader to relay a FileUpdatePush back to everyone
// but its original sender). Peers whose write fails are evicted and
// returned in failed.
func (m *Manager) BroadcastExcept(message wire.ServerMessage, exclude mapset.Set[string]) (failed []string) {
	m.mu.Lock()
	targets := make(map[string]*connection, len(m.conns))
	for id, c := range m.conns {
		if exclude.Contains(id) {
			continue
		}
		targets[id] = c
	}
	m.mu.Unlock()

	for id, c := range targets {
		c.mu.Lock()
		err := wire.WriteServerMessage(c.w, message)
		c.mu.Unlock()

		if err != nil {
			slog.Warn("connmgr: broadcast failed, evicting peer", "peer", id, "error", err)
			failed = append(failed, id)
		}
	}

	if len(failed) > 0 {
		m.mu.Lock()
		for _, id := range failed {
			delete(m.conns, id)
		}
		m.mu.Unlock()
	}

	return failed
}

// Count returns the number of currently connected peers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Connected returns the ids of every currently connected peer.
func (m *Manager) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.conns))
	for id := range m.conns {
		out = append(out, id)
	}
	return out
}

// IsConnected reports whether peerID currently has an active connection.
func (m *Manager) IsConnected(peerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.conns[peerID]
	return ok
}
