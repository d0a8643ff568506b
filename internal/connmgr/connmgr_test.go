package connmgr

import (
	"net"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"

	"github.com/synclite/synclite/internal/wire"
)

func timeSoon(t *testing.T) time.Time {
	t.Helper()
	return time.Now().Add(100 * time.Millisecond)
}

// pipePeer wires a net.Pipe so the manager can write into one end while a
// test reads frames off the other.
func pipePeer(t *testing.T) (serverSide net.Conn, clientSide net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestSendDeliversToNamedPeer(t *testing.T) {
	m := New()
	server, client := pipePeer(t)
	m.Add("p1", server)

	go func() {
		_ = m.Send("p1", wire.NewConnectionAck("p1", "leader"))
	}()

	got, err := wire.ReadServerMessage(client)
	require.NoError(t, err)
	require.Equal(t, "ConnectionAck", got.Variant())
}

func TestSendToUnknownPeerFails(t *testing.T) {
	m := New()
	err := m.Send("ghost", wire.NewPeerListUpdate(nil))
	require.Error(t, err)
}

func TestBroadcastReachesAllConnectedPeers(t *testing.T) {
	m := New()
	s1, c1 := pipePeer(t)
	s2, c2 := pipePeer(t)
	m.Add("p1", s1)
	m.Add("p2", s2)

	done := make(chan []string, 1)
	go func() { done <- m.Broadcast(wire.NewPeerListUpdate([]string{"p1", "p2"})) }()

	msg1, err := wire.ReadServerMessage(c1)
	require.NoError(t, err)
	require.Equal(t, "PeerListUpdate", msg1.Variant())

	msg2, err := wire.ReadServerMessage(c2)
	require.NoError(t, err)
	require.Equal(t, "PeerListUpdate", msg2.Variant())

	failed := <-done
	require.Empty(t, failed)
}

func TestBroadcastExceptSkipsExcludedPeer(t *testing.T) {
	m := New()
	s1, c1 := pipePeer(t)
	s2, c2 := pipePeer(t)
	m.Add("sender", s1)
	m.Add("other", s2)

	exclude := mapset.NewSet("sender")
	go m.BroadcastExcept(wire.NewServerFileUpdatePush(map[string]string{"a": "x"}, nil), exclude)

	got, err := wire.ReadServerMessage(c2)
	require.NoError(t, err)
	require.Equal(t, "FileUpdatePush", got.Variant())

	require.NoError(t, c1.SetReadDeadline(timeSoon(t)))
	_, err = wire.ReadServerMessage(c1)
	require.Error(t, err)
}

func TestBroadcastEvictsFailedPeer(t *testing.T) {
	m := New()
	s1, c1 := pipePeer(t)
	m.Add("p1", s1)
	c1.Close()
	s1.Close()

	failed := m.Broadcast(wire.NewPeerListUpdate(nil))
	require.Equal(t, []string{"p1"}, failed)
	require.False(t, m.IsConnected("p1"))
}

func TestCountAndConnected(t *testing.T) {
	m := New()
	s1, _ := pipePeer(t)
	s2, _ := pipePeer(t)
	m.Add("p1", s1)
	m.Add("p2", s2)

	require.Equal(t, 2, m.Count())
	require.ElementsMatch(t, []string{"p1", "p2"}, m.Connected())
}

func TestRemoveDropsPeer(t *testing.T) {
	m := New()
	s1, _ := pipePeer(t)
	m.Add("p1", s1)
	m.Remove("p1")

	require.False(t, m.IsConnected("p1"))
	require.Equal(t, 0, m.Count())
}
