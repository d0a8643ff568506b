package node

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/synclite/synclite/internal/watcher"
	"github.com/synclite/synclite/internal/wire"
)

// ErrBadHandshake is returned when the first frame from a dialed leader
// is not a ConnectionAck.
var ErrBadHandshake = fmt.Errorf("node: first frame from leader was not a ConnectionAck")

// Follower runs a node in the follower role: dial a leader, complete the
// handshake and initial sync, then run the watcher and receive loop
// concurrently until either fails.
type Follower struct {
	deps *Deps
}

// NewFollower binds a Follower to deps.
func NewFollower(deps *Deps) *Follower {
	return &Follower{deps: deps}
}

// Run dials leaderAddr and blocks until ctx is canceled or the connection
// fails. A reader error here is meant to be fatal to the process, per the
// follower's disconnection policy: callers should exit on a non-nil
// return rather than retry internally.
func (f *Follower) Run(ctx context.Context, leaderAddr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", leaderAddr)
	if err != nil {
		return fmt.Errorf("node: dial %s: %w", leaderAddr, err)
	}
	defer conn.Close()

	ack, err := wire.ReadServerMessage(conn)
	if err != nil {
		return fmt.Errorf("node: read handshake frame: %w", err)
	}
	if ack.ConnectionAck == nil {
		return ErrBadHandshake
	}

	if err := f.deps.Peers.SetLeader(ack.ConnectionAck.LeaderID); err != nil {
		return fmt.Errorf("node: persist leader id: %w", err)
	}

	state := f.deps.Store.Snapshot()
	if err := wire.WritePeerMessage(conn, wire.NewInitialSyncPush(state)); err != nil {
		return fmt.Errorf("node: send InitialSyncPush: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})

	g.Go(func() error {
		return f.deps.Watcher.Run(gctx, func(u watcher.Update) {
			if len(u.FilesToWrite) == 0 && len(u.FilesToDelete) == 0 {
				return
			}
			if err := wire.WritePeerMessage(conn, wire.NewPeerFileUpdatePush(u.FilesToWrite, u.FilesToDelete)); err != nil {
				// the reader goroutine will observe the same broken
				// connection and report the fatal error for this group.
				return
			}
		})
	})

	g.Go(func() error {
		return f.receiveLoop(conn)
	})

	return g.Wait()
}

func (f *Follower) receiveLoop(conn net.Conn) error {
	for {
		msg, err := wire.ReadServerMessage(conn)
		if err != nil {
			return fmt.Errorf("node: leader connection lost: %w", err)
		}

		switch {
		case msg.InitialSyncPushResponse != nil:
			if err := f.handleInitialSyncPushResponse(conn, msg.InitialSyncPushResponse); err != nil {
				return err
			}
		case msg.PeerListUpdate != nil:
			if err := f.deps.Peers.SetPeers(msg.PeerListUpdate.Peers); err != nil {
				return fmt.Errorf("node: persist peer list: %w", err)
			}
		case msg.FileUpdatePush != nil:
			f.deps.Echo.Suppress()
			if err := f.deps.applyWrites(msg.FileUpdatePush.FilesToWrite); err != nil {
				return err
			}
			if err := f.deps.applyDeletes(msg.FileUpdatePush.FilesToDelete); err != nil {
				return err
			}
		}
	}
}

func (f *Follower) handleInitialSyncPushResponse(conn net.Conn, resp *wire.InitialSyncPushResponse) error {
	f.deps.Echo.Suppress()
	if err := f.deps.applyDeletes(resp.FilesToDelete); err != nil {
		return err
	}
	if err := f.deps.applyWrites(resp.FilesToUpdate); err != nil {
		return err
	}

	toSend := f.deps.readFiles(resp.FilesToSendBack)
	return wire.WritePeerMessage(conn, wire.NewPeerFileUpdatePush(toSend, nil))
}
