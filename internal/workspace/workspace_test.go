package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrap_CreatesMetadataAndSeedsEmptyDocuments(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "workspace")

	ws, err := New(root)
	require.NoError(t, err)
	require.NoError(t, ws.Bootstrap())
	defer ws.Unlock()

	require.DirExists(t, ws.MetaDir)

	peersData, err := os.ReadFile(ws.PeersPath)
	require.NoError(t, err)
	require.JSONEq(t, `{"leader":null,"peers":[]}`, string(peersData))

	stateData, err := os.ReadFile(ws.StatePath)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(stateData))
}

func TestBootstrap_LeavesExistingDocumentsUntouched(t *testing.T) {
	root := t.TempDir()

	ws, err := New(root)
	require.NoError(t, err)
	require.NoError(t, ws.Bootstrap())

	require.NoError(t, os.WriteFile(ws.StatePath, []byte(`{"a.txt":{"hash":"x","is_deleted":false,"last_modified":"2026-01-01T00:00:00Z"}}`), 0o644))
	ws.Unlock()

	ws2, err := New(root)
	require.NoError(t, err)
	require.NoError(t, ws2.Bootstrap())
	defer ws2.Unlock()

	data, err := os.ReadFile(ws2.StatePath)
	require.NoError(t, err)
	require.Contains(t, string(data), "a.txt")
}

func TestBootstrap_SecondLockAttemptFails(t *testing.T) {
	root := t.TempDir()

	ws1, err := New(root)
	require.NoError(t, err)
	require.NoError(t, ws1.Bootstrap())
	defer ws1.Unlock()

	ws2, err := New(root)
	require.NoError(t, err)
	err = ws2.Bootstrap()
	require.ErrorIs(t, err, ErrLocked)
}

func TestUnlock_IsIdempotent(t *testing.T) {
	root := t.TempDir()

	ws, err := New(root)
	require.NoError(t, err)
	require.NoError(t, ws.Bootstrap())

	require.NoError(t, ws.Unlock())
	require.NoError(t, ws.Unlock())
}
