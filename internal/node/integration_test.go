package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLeaderFollowerInitialSync drives a real leader and a real follower
// over a loopback TCP connection through the handshake and the initial
// sync exchange, the one exchange that's fully deterministic without
// waiting on filesystem watch events.
func TestLeaderFollowerInitialSync(t *testing.T) {
	leaderDeps := newTestDeps(t)
	seedFile(t, leaderDeps, "from-leader.txt", "leader content")

	followerDeps := newTestDeps(t)
	seedFile(t, followerDeps, "from-follower.txt", "follower content")

	leader := NewLeader(leaderDeps)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leaderErr := make(chan error, 1)
	go func() {
		leaderErr <- serveOnListener(ctx, leader, ln)
	}()

	follower := NewFollower(followerDeps)
	followerErr := make(chan error, 1)
	go func() {
		followerErr <- follower.Run(ctx, ln.Addr().String())
	}()

	require.Eventually(t, func() bool {
		content, err := followerDeps.FS.ReadFile("from-leader.txt")
		return err == nil && string(content) == "leader content"
	}, 3*time.Second, 20*time.Millisecond, "follower never received the leader's file")

	require.Eventually(t, func() bool {
		content, err := leaderDeps.FS.ReadFile("from-follower.txt")
		return err == nil && string(content) == "follower content"
	}, 3*time.Second, 20*time.Millisecond, "leader never received the follower's file")

	require.Eventually(t, func() bool {
		return leaderDeps.Conns.Count() == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	ln.Close()

	select {
	case err := <-leaderErr:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("leader.Run never returned after cancel")
	}
	select {
	case <-followerErr:
		// the follower's watcher goroutine surfaces ctx.Err() (and the
		// receive loop surfaces a "connection lost" error once the conn
		// is torn down) as soon as the group's derived context is
		// canceled — an error return here is the expected shutdown
		// path, not a failure.
	case <-time.After(3 * time.Second):
		t.Fatal("follower.Run never returned after cancel")
	}
}

// serveOnListener runs the leader's accept loop against an already-open
// listener, mirroring the acceptor task of Leader.Run but letting the test
// control bind timing precisely. The leader's watcher is not started.
func serveOnListener(ctx context.Context, l *Leader, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go l.handleConnection(ctx, conn)
	}
}
