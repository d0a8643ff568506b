// Package workspace resolves a workspace root, guards it with a single-
// process lock, and bootstraps the ".synclite" metadata directory
// It owns the paths every other component is handed.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/synclite/synclite/internal/utils"
)

const (
	metaDirName  = ".synclite"
	lockFileName = "lock"
	stateFile    = "state.json"
	peersFile    = "peers.json"
)

// ErrLocked is returned by Bootstrap when another process already holds
// the workspace lock.
var ErrLocked = errors.New("workspace: locked by another process")

// Workspace is a resolved, lockable workspace root plus the paths of its
// metadata files.
type Workspace struct {
	Root      string
	MetaDir   string
	StatePath string
	PeersPath string

	flock *flock.Flock
}

// New resolves rootDir to an absolute path and prepares (without yet
// creating or locking) its metadata paths.
func New(rootDir string) (*Workspace, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve %s: %w", rootDir, err)
	}
	abs = filepath.Clean(abs)

	metaDir := filepath.Join(abs, metaDirName)
	return &Workspace{
		Root:      abs,
		MetaDir:   metaDir,
		StatePath: filepath.Join(metaDir, stateFile),
		PeersPath: filepath.Join(metaDir, peersFile),
		flock:     flock.New(filepath.Join(metaDir, lockFileName)),
	}, nil
}

// Bootstrap ensures .synclite/ exists, locks it against a second local
// process touching the same workspace concurrently (a lighter-weight,
// single-host analog of the cross-machine directory registry that sits
// outside this system's scope), and seeds peers.json/state.json with
// empty documents if they are missing. Existing files are left untouched.
func (w *Workspace) Bootstrap() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("workspace: create root %s: %w", w.Root, err)
	}
	if err := utils.EnsureDir(w.MetaDir); err != nil {
		return fmt.Errorf("workspace: create %s: %w", w.MetaDir, err)
	}

	if err := w.lock(); err != nil {
		return err
	}

	if err := hideOnWindows(w.MetaDir); err != nil {
		slog.Warn("workspace: failed to set hidden attribute", "dir", w.MetaDir, "error", err)
	}

	if err := seedIfMissing(w.PeersPath, emptyPeersDoc); err != nil {
		return fmt.Errorf("workspace: seed peers.json: %w", err)
	}
	if err := seedIfMissing(w.StatePath, emptyStateDoc); err != nil {
		return fmt.Errorf("workspace: seed state.json: %w", err)
	}

	return nil
}

func (w *Workspace) lock() error {
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("workspace: lock %s: %w", w.Root, err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

// Unlock releases the workspace lock if held by this process.
func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}
	return w.flock.Unlock()
}

var emptyPeersDoc = []byte(`{"leader":null,"peers":[]}` + "\n")
var emptyStateDoc = []byte(`{}` + "\n")

func seedIfMissing(path string, contents []byte) error {
	if utils.FileExists(path) {
		return nil
	}

	// Validate the seed is itself well-formed JSON: a defensive check
	// against a future edit to the literals above going stale.
	var probe any
	if err := json.Unmarshal(contents, &probe); err != nil {
		return fmt.Errorf("seed document invalid json: %w", err)
	}

	return os.WriteFile(path, contents, 0o644)
}
