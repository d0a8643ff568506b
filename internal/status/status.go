// Package status is a passive, non-authoritative observer of node
// activity: connect/disconnect counts, transfer totals, and conflict
// counts, fed by method calls from the components that actually own that
// state. It never mutates sync state and never gates a protocol decision.
package status

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Connects       int
	Disconnects    int
	FilesSent      int
	BytesSent      int64
	FilesReceived  int
	BytesReceived  int64
	Conflicts      int
	LastActivityAt time.Time
}

// Reporter accumulates counters and fans out snapshots to subscribers for
// a live view.
type Reporter struct {
	mu   sync.Mutex
	snap Snapshot

	subMu sync.Mutex
	subs  []chan Snapshot
}

// New returns an empty Reporter.
func New() *Reporter {
	return &Reporter{}
}

// RecordConnect increments the connect counter.
func (r *Reporter) RecordConnect() { r.update(func(s *Snapshot) { s.Connects++ }) }

// RecordDisconnect increments the disconnect counter.
func (r *Reporter) RecordDisconnect() { r.update(func(s *Snapshot) { s.Disconnects++ }) }

// RecordSent records one file of the given byte size sent to a peer.
func (r *Reporter) RecordSent(path string, bytes int) {
	r.update(func(s *Snapshot) {
		s.FilesSent++
		s.BytesSent += int64(bytes)
	})
}

// RecordReceived records one file of the given byte size received from a
// peer.
func (r *Reporter) RecordReceived(path string, bytes int) {
	r.update(func(s *Snapshot) {
		s.FilesReceived++
		s.BytesReceived += int64(bytes)
	})
}

// RecordConflict records a reconciliation tie (both sides keep their own
// entry) observed for path.
func (r *Reporter) RecordConflict(path string) {
	r.update(func(s *Snapshot) { s.Conflicts++ })
}

func (r *Reporter) update(mutate func(*Snapshot)) {
	r.mu.Lock()
	mutate(&r.snap)
	r.snap.LastActivityAt = time.Now()
	snap := r.snap
	r.mu.Unlock()

	r.fanOut(snap)
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Subscribe returns a channel that receives a Snapshot after every
// recorded event, for a live terminal view. The channel is closed by
// Unsubscribe; callers must not block the reporter by leaving it
// unconsumed for long (sends are non-blocking and drop on a full
// channel).
func (r *Reporter) Subscribe() (ch <-chan Snapshot, unsubscribe func()) {
	c := make(chan Snapshot, 8)

	r.subMu.Lock()
	r.subs = append(r.subs, c)
	r.subMu.Unlock()

	unsub := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		for i, sub := range r.subs {
			if sub == c {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				close(c)
				return
			}
		}
	}
	return c, unsub
}

func (r *Reporter) fanOut(snap Snapshot) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, c := range r.subs {
		select {
		case c <- snap:
		default:
		}
	}
}
