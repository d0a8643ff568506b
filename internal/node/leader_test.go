package node

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synclite/synclite/internal/syncstate"
	"github.com/synclite/synclite/internal/wire"
)

func TestHandleInitialSync_SendsLeaderFilesAndAppliesFollowerTombstone(t *testing.T) {
	deps := newTestDeps(t)
	seedFile(t, deps, "leader-only.txt", "from the leader")

	l := NewLeader(deps)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	deletedAt := time.Now().Add(-time.Minute).UTC()

	done := make(chan struct{})
	go func() {
		defer close(done)
		peerState := syncstate.Map{
			"follower-tombstone.txt": syncstate.Tombstone(deletedAt),
		}
		l.handleInitialSync("peer-1", server, peerState)
	}()

	resp, err := wire.ReadServerMessage(client)
	require.NoError(t, err)
	require.NotNil(t, resp.InitialSyncPushResponse)
	require.Equal(t, "from the leader", resp.InitialSyncPushResponse.FilesToUpdate["leader-only.txt"])

	<-done

	// the follower's tombstone for a path the leader never had should be
	// carried onto the leader's own state, not re-stamped with now.
	entry, ok := deps.Store.Get("follower-tombstone.txt")
	require.True(t, ok)
	require.True(t, entry.IsDeleted)
	require.True(t, deletedAt.Equal(entry.LastModified))
}

func TestHandleFollowerFileUpdate_AppliesLocallyAndBroadcastsExceptSender(t *testing.T) {
	deps := newTestDeps(t)
	l := NewLeader(deps)

	senderServer, senderClient := net.Pipe()
	defer senderServer.Close()
	defer senderClient.Close()
	otherServer, otherClient := net.Pipe()
	defer otherServer.Close()
	defer otherClient.Close()

	deps.Conns.Add("sender", senderServer)
	deps.Conns.Add("other", otherServer)

	readDone := make(chan wire.ServerMessage, 1)
	go func() {
		msg, err := wire.ReadServerMessage(otherClient)
		if err == nil {
			readDone <- msg
		}
	}()

	// the sender's own connection must never receive an echo of its own
	// update, so nothing is ever written to senderClient here.
	l.handleFollowerFileUpdate("sender", &wire.FileUpdatePush{
		FilesToWrite: map[string]string{"new.txt": "hello"},
	})

	select {
	case msg := <-readDone:
		require.NotNil(t, msg.FileUpdatePush)
		require.Equal(t, "hello", msg.FileUpdatePush.FilesToWrite["new.txt"])
	case <-time.After(2 * time.Second):
		t.Fatal("other peer never received the relayed update")
	}

	content, err := deps.FS.ReadFile("new.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))
}

func TestDisconnect_RemovesPeerAndRecordsStatus(t *testing.T) {
	deps := newTestDeps(t)
	l := NewLeader(deps)

	server, client := net.Pipe()
	defer client.Close()

	deps.Conns.Add("peer-1", server)
	require.NoError(t, deps.Peers.AddPeer("peer-1"))

	go func() {
		// drain anything written to peer-1's pipe so the call below can
		// never block on it; disconnect drops peer-1 from Conns before
		// its peer-list broadcast, so normally nothing arrives here.
		for {
			if _, err := wire.ReadServerMessage(client); err != nil {
				return
			}
		}
	}()

	l.disconnect("peer-1", server)

	require.False(t, deps.Conns.IsConnected("peer-1"))
	snap := deps.Peers.Snapshot()
	require.NotContains(t, snap.Peers, "peer-1")
	require.Equal(t, 1, deps.Status.Snapshot().Disconnects)
}
