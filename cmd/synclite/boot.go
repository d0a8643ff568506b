package main

import (
	"fmt"
	"time"

	"github.com/synclite/synclite/internal/config"
	"github.com/synclite/synclite/internal/connmgr"
	"github.com/synclite/synclite/internal/ignore"
	"github.com/synclite/synclite/internal/node"
	"github.com/synclite/synclite/internal/peers"
	"github.com/synclite/synclite/internal/sandbox"
	"github.com/synclite/synclite/internal/stateinit"
	"github.com/synclite/synclite/internal/status"
	"github.com/synclite/synclite/internal/syncstate"
	"github.com/synclite/synclite/internal/utils"
	"github.com/synclite/synclite/internal/watcher"
	"github.com/synclite/synclite/internal/workspace"
)

// echoGrace is how long the echo-suppression flag stays set after the last
// programmatic write in a batch, to ride out disk events trailing their cause.
const echoGrace = 100 * time.Millisecond

// bootWorkspace resolves, locks, and seeds workspacePath, then scans the
// tree and builds every component a node (leader or follower) needs to
// run. Callers must call release() before exiting.
func bootWorkspace(workspacePath string) (deps *node.Deps, ws *workspace.Workspace, release func(), err error) {
	resolved, err := utils.ResolvePath(workspacePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve workspace path: %w", err)
	}

	ws, err = workspace.New(resolved)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := ws.Bootstrap(); err != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap workspace: %w", err)
	}
	release = func() { ws.Unlock() }

	fs, err := sandbox.New(ws.Root)
	if err != nil {
		release()
		return nil, nil, nil, err
	}

	ignoreList := ignore.Load(ws.Root)
	store := syncstate.NewStore(ws.StatePath)

	if _, err := stateinit.Run(ws.Root, store, ignoreList); err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("initialize sync state: %w", err)
	}

	peerRegistry := peers.NewRegistry(ws.PeersPath)
	if err := peerRegistry.Load(); err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("load peers.json: %w", err)
	}

	echo := watcher.NewEchoGuard(echoGrace)

	deps = &node.Deps{
		FS:      fs,
		Store:   store,
		Peers:   peerRegistry,
		Conns:   connmgr.New(),
		Status:  status.New(),
		Echo:    echo,
		Ignore:  ignoreList,
		Watcher: watcher.New(ws.Root, store, fs, ignoreList, echo),
	}

	return deps, ws, release, nil
}

// loadDefaults resolves ambient config (port, log level) from the
// --config flag / $SYNCLITE_CONFIG / built-in defaults.
func loadDefaults(configPath string) (config.Defaults, error) {
	return config.Load(configPath)
}
