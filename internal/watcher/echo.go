package watcher

import (
	"sync"
	"sync/atomic"
	"time"
)

// EchoGuard is the single process-wide echo-suppression flag: set before
// a programmatic write/delete of a workspace file, and cleared
// automatically after a grace period, so the watcher doesn't re-detect
// and re-broadcast a change this node just applied on a peer's behalf.
type EchoGuard struct {
	suppressed atomic.Bool
	grace      time.Duration

	mu  sync.Mutex
	gen uint64 // bumped by every Suppress; only the latest call's timer clears
}

// NewEchoGuard builds a guard with the given grace period.
func NewEchoGuard(grace time.Duration) *EchoGuard {
	return &EchoGuard{grace: grace}
}

// Suppress sets the flag immediately and schedules it to clear after the
// grace period. Overlapping calls simply extend the window.
func (g *EchoGuard) Suppress() {
	g.mu.Lock()
	g.gen++
	gen := g.gen
	g.suppressed.Store(true)
	g.mu.Unlock()

	time.AfterFunc(g.grace, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.gen == gen {
			g.suppressed.Store(false)
		}
	})
}

// Suppressed reports whether the flag is currently set.
func (g *EchoGuard) Suppressed() bool {
	return g.suppressed.Load()
}
