package node

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/synclite/synclite/internal/connmgr"
	"github.com/synclite/synclite/internal/hashsum"
	"github.com/synclite/synclite/internal/ignore"
	"github.com/synclite/synclite/internal/peers"
	"github.com/synclite/synclite/internal/sandbox"
	"github.com/synclite/synclite/internal/status"
	"github.com/synclite/synclite/internal/syncstate"
	"github.com/synclite/synclite/internal/watcher"
)

// newTestDeps builds a fully wired Deps rooted at a fresh temp directory,
// the same shape cmd/synclite's boot.go assembles, minus the on-disk
// workspace bootstrap (lock file, seeded peers.json) node itself never
// touches.
func newTestDeps(t *testing.T) *Deps {
	t.Helper()

	root := t.TempDir()

	fs, err := sandbox.New(root)
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}

	store := syncstate.NewStore(filepath.Join(root, "state.json"))
	peerRegistry := peers.NewRegistry(filepath.Join(root, "peers.json"))

	echo := watcher.NewEchoGuard(50 * time.Millisecond)
	ignoreList := ignore.Load(root)

	return &Deps{
		FS:      fs,
		Store:   store,
		Peers:   peerRegistry,
		Conns:   connmgr.New(),
		Status:  status.New(),
		Echo:    echo,
		Ignore:  ignoreList,
		Watcher: watcher.New(root, store, fs, ignoreList, echo),
	}
}

// seedFile writes content directly to the sandbox and records it in the
// store, as if it had been there since before the process started.
func seedFile(t *testing.T, d *Deps, path, content string) {
	t.Helper()
	if err := d.FS.WriteFile(path, []byte(content)); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
	hash := hashsum.Bytes([]byte(content))
	if err := d.Store.Update(path, hash); err != nil {
		t.Fatalf("seed state for %s: %v", path, err)
	}
}
