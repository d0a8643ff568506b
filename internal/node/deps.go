// Package node wires together every other component into the two
// end-to-end roles a process can run: leader (accepts followers) and
// follower (dials a leader). It implements the handshake, the
// initial-sync exchange, and the steady-state relay loops.
package node

import (
	"github.com/synclite/synclite/internal/connmgr"
	"github.com/synclite/synclite/internal/ignore"
	"github.com/synclite/synclite/internal/peers"
	"github.com/synclite/synclite/internal/sandbox"
	"github.com/synclite/synclite/internal/status"
	"github.com/synclite/synclite/internal/syncstate"
	"github.com/synclite/synclite/internal/watcher"
)

// Deps bundles every component a node (leader or follower) needs. All
// fields are required.
type Deps struct {
	FS      *sandbox.FS
	Store   *syncstate.Store
	Peers   *peers.Registry
	Conns   *connmgr.Manager
	Status  *status.Reporter
	Echo    *watcher.EchoGuard
	Ignore  *ignore.List
	Watcher *watcher.Watcher
}
