package node

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/synclite/synclite/internal/reconcile"
	"github.com/synclite/synclite/internal/syncstate"
	"github.com/synclite/synclite/internal/watcher"
	"github.com/synclite/synclite/internal/wire"
)

// Leader runs a node in the leader role: it accepts follower connections,
// runs its own watcher, and relays steady-state updates.
type Leader struct {
	deps     *Deps
	leaderID string
}

// NewLeader assigns this process a fresh leader id and binds it to deps.
func NewLeader(deps *Deps) *Leader {
	return &Leader{deps: deps, leaderID: uuid.NewString()}
}

// LeaderID returns the id this leader advertises to followers.
func (l *Leader) LeaderID() string { return l.leaderID }

// Run listens on listenAddr, accepting followers, and runs the local
// watcher concurrently. It blocks until ctx is canceled or a fatal error
// occurs in either task.
func (l *Leader) Run(ctx context.Context, listenAddr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("node: listen on %s: %w", listenAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("node: accept: %w", err)
			}
			go l.handleConnection(gctx, conn)
		}
	})

	g.Go(func() error {
		return l.deps.Watcher.Run(gctx, func(u watcher.Update) {
			l.broadcastFileUpdate(u.FilesToWrite, u.FilesToDelete, mapset.NewSet[string]())
		})
	})

	return g.Wait()
}

func (l *Leader) broadcastFileUpdate(filesToWrite map[string]string, filesToDelete []string, exclude mapset.Set[string]) {
	if len(filesToWrite) == 0 && len(filesToDelete) == 0 {
		return
	}
	failed := l.deps.Conns.BroadcastExcept(wire.NewServerFileUpdatePush(filesToWrite, filesToDelete), exclude)
	for _, id := range failed {
		l.deps.Peers.RemovePeer(id)
	}
	if len(failed) > 0 {
		l.broadcastPeerList()
	}
}

func (l *Leader) handleConnection(ctx context.Context, conn net.Conn) {
	peerID := uuid.NewString()

	l.deps.Conns.Add(peerID, conn)
	l.deps.Status.RecordConnect()

	if err := wire.WriteServerMessage(conn, wire.NewConnectionAck(peerID, l.leaderID)); err != nil {
		slog.Warn("node: failed to send ConnectionAck", "peer", peerID, "error", err)
		l.disconnect(peerID, conn)
		return
	}

	if err := l.deps.Peers.AddPeer(peerID); err != nil {
		slog.Warn("node: failed to persist new peer", "peer", peerID, "error", err)
	}
	l.broadcastPeerList()

	for {
		msg, err := wire.ReadPeerMessage(conn)
		if err != nil {
			l.disconnect(peerID, conn)
			return
		}

		switch {
		case msg.InitialSyncPush != nil:
			l.handleInitialSync(peerID, conn, msg.InitialSyncPush.SyncState)
		case msg.FileUpdatePush != nil:
			l.handleFollowerFileUpdate(peerID, msg.FileUpdatePush)
		}
	}
}

func (l *Leader) handleInitialSync(peerID string, conn net.Conn, peerState syncstate.Map) {
	leaderState := l.deps.Store.Snapshot()
	res := reconcile.Run(leaderState, peerState)

	for _, path := range res.Conflicts {
		l.deps.Status.RecordConflict(path)
	}

	l.deps.Echo.Suppress()
	for _, path := range res.ADel {
		// carry the follower's tombstone (with its own last_modified)
		// onto the leader's state, rather than re-stamping it with now.
		entry := peerState[path]
		if err := l.deps.FS.DeleteFile(path); err != nil {
			slog.Warn("node: initial sync delete failed", "path", path, "error", err)
			continue
		}
		if err := l.deps.Store.Batch(func(m syncstate.Map) {
			m[path] = entry
		}); err != nil {
			slog.Warn("node: persisting initial-sync delete failed", "path", path, "error", err)
		}
	}

	filesToUpdate := l.deps.readFiles(res.ASend)

	resp := wire.NewInitialSyncPushResponse(filesToUpdate, res.BDel, res.BSend)
	if err := wire.WriteServerMessage(conn, resp); err != nil {
		slog.Warn("node: failed to send InitialSyncPushResponse", "peer", peerID, "error", err)
	}
}

func (l *Leader) handleFollowerFileUpdate(senderID string, fup *wire.FileUpdatePush) {
	l.deps.Echo.Suppress()
	if err := l.deps.applyWrites(fup.FilesToWrite); err != nil {
		slog.Warn("node: apply follower update failed", "peer", senderID, "error", err)
	}
	if err := l.deps.applyDeletes(fup.FilesToDelete); err != nil {
		slog.Warn("node: apply follower delete failed", "peer", senderID, "error", err)
	}

	l.broadcastFileUpdate(fup.FilesToWrite, fup.FilesToDelete, mapset.NewSet(senderID))
}

func (l *Leader) disconnect(peerID string, conn net.Conn) {
	conn.Close()
	l.deps.Conns.Remove(peerID)
	l.deps.Peers.RemovePeer(peerID)
	l.deps.Status.RecordDisconnect()
	l.broadcastPeerList()
}

func (l *Leader) broadcastPeerList() {
	snap := l.deps.Peers.Snapshot()
	l.deps.Conns.Broadcast(wire.NewPeerListUpdate(snap.Peers))
}
