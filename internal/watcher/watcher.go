// Package watcher turns a raw, bursty filesystem event stream into
// debounced create/modify/delete decisions ready to hand to the session
// layer as a FileUpdatePush payload.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rjeczalik/notify"

	"github.com/synclite/synclite/internal/hashsum"
	"github.com/synclite/synclite/internal/ignore"
	"github.com/synclite/synclite/internal/sandbox"
	"github.com/synclite/synclite/internal/syncstate"
)

// DebounceWindow is the fixed sleep-then-drain window a burst of events
// on the same path is collapsed into.
const DebounceWindow = 150 * time.Millisecond

const eventBufferSize = 256

// Update is the result of one debounced decision round: files to write
// (content read from disk at decision time) and files to delete, both
// workspace-relative.
type Update struct {
	FilesToWrite  map[string]string
	FilesToDelete []string
}

// Empty reports whether the update carries nothing to send.
func (u Update) Empty() bool {
	return len(u.FilesToWrite) == 0 && len(u.FilesToDelete) == 0
}

// kindSet is the multiset (as booleans; only presence matters) of event
// kinds observed for a single path during one debounce window.
type kindSet struct {
	create bool
	remove bool
	modify bool
}

// Watcher watches a workspace root recursively and, for every debounced
// burst of changes, applies the resulting writes/deletes to a sync-state
// store and hands the caller an Update to forward over the wire.
type Watcher struct {
	root       string
	store      *syncstate.Store
	fs         *sandbox.FS
	ignoreList *ignore.List
	echo       *EchoGuard
	debounce   time.Duration
}

// New builds a Watcher rooted at the same workspace as fs and store.
func New(root string, store *syncstate.Store, fs *sandbox.FS, ignoreList *ignore.List, echo *EchoGuard) *Watcher {
	return &Watcher{
		root:       root,
		store:      store,
		fs:         fs,
		ignoreList: ignoreList,
		echo:       echo,
		debounce:   DebounceWindow,
	}
}

// Run watches until ctx is canceled or the underlying notify subscription
// fails, calling onUpdate once per non-empty debounced decision round.
// onUpdate is called synchronously from the watch loop; callers that need
// to forward the update over a potentially slow connection should hand it
// off to another goroutine quickly.
func (w *Watcher) Run(ctx context.Context, onUpdate func(Update)) error {
	raw := make(chan notify.EventInfo, eventBufferSize)

	recursivePath := filepath.Join(w.root, "...")
	if err := notify.Watch(recursivePath, raw, notify.Create, notify.Remove, notify.Write, notify.Rename); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.root, err)
	}
	defer notify.Stop(raw)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-raw:
			if !ok {
				return nil
			}
			if w.echo.Suppressed() {
				continue
			}
			w.handleBurst(ev, raw, onUpdate)
		}
	}
}

// handleBurst implements one iteration of the per-burst algorithm: sleep,
// drain whatever else arrived, group by path, decide, apply, and deliver.
func (w *Watcher) handleBurst(first notify.EventInfo, raw <-chan notify.EventInfo, onUpdate func(Update)) {
	grouped := make(map[string]kindSet)
	accumulate(grouped, first)

	time.Sleep(w.debounce)

drain:
	for {
		select {
		case ev, ok := <-raw:
			if !ok {
				break drain
			}
			accumulate(grouped, ev)
		default:
			break drain
		}
	}

	update := Update{FilesToWrite: make(map[string]string), FilesToDelete: nil}

	for absPath, kinds := range grouped {
		relPath, ok := w.relPath(absPath)
		if !ok {
			continue
		}
		if w.ignoreList.ShouldIgnore(relPath) {
			continue
		}

		w.decide(relPath, kinds, &update)
	}

	if !update.Empty() {
		onUpdate(update)
	}
}

func accumulate(grouped map[string]kindSet, ev notify.EventInfo) {
	k := grouped[ev.Path()]
	switch ev.Event() {
	case notify.Create:
		k.create = true
	case notify.Remove:
		k.remove = true
	case notify.Write:
		k.modify = true
	case notify.Rename:
		// Rename is ambiguous without pairing half-events by inode;
		// treated conservatively as touching both sides of a move.
		k.create = true
		k.remove = true
	}
	grouped[ev.Path()] = k
}

// decide applies the exists/create/remove/modify decision table for one
// path, mutating update and the store as a side effect.
func (w *Watcher) decide(relPath string, k kindSet, update *Update) {
	_, statErr := os.Stat(filepath.Join(w.root, relPath))
	exists := statErr == nil

	writeDecision := (exists && k.create && k.remove) || // atomic-save collapse
		(exists && k.create && !k.remove) ||
		(exists && !k.create && k.modify)
	deleteDecision := !exists && k.remove

	switch {
	case writeDecision:
		content, err := w.fs.ReadFile(relPath)
		if err != nil {
			slog.Warn("watcher: read changed file failed", "path", relPath, "error", err)
			return
		}
		hash := hashsum.Bytes(content)
		if err := w.store.Update(relPath, hash); err != nil {
			slog.Warn("watcher: persist update failed", "path", relPath, "error", err)
			return
		}
		update.FilesToWrite[relPath] = string(content)

	case deleteDecision:
		if err := w.store.Delete(relPath); err != nil {
			slog.Warn("watcher: persist delete failed", "path", relPath, "error", err)
			return
		}
		update.FilesToDelete = append(update.FilesToDelete, relPath)

	default:
		// neither table row matched: ignore this round for this path
	}
}

// relPath computes a workspace-relative, forward-slash path for absPath,
// rejecting anything under .synclite or outside the workspace root.
func (w *Watcher) relPath(absPath string) (string, bool) {
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil {
		return "", false
	}
	rel = filepath.Clean(rel)
	rel = strings.ReplaceAll(rel, string(filepath.Separator), "/")

	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	if rel == ".synclite" || strings.HasPrefix(rel, ".synclite/") {
		return "", false
	}
	return rel, true
}
