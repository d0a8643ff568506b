// Package stateinit implements the boot-time state initializer: merge the
// persisted state.json with a fresh recursive scan of the workspace, so
// that after Run the sync state exactly describes the current workspace
// contents plus any tombstones inherited from persistence for paths that
// no longer exist on disk.
package stateinit

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/synclite/synclite/internal/hashsum"
	"github.com/synclite/synclite/internal/ignore"
	"github.com/synclite/synclite/internal/reconcile"
	"github.com/synclite/synclite/internal/syncstate"
)

// hashCacheSize bounds the (path,size,mtime)->hash cache. The cache is
// created afresh by each scan and each path is visited once per scan, so
// it does not carry hashes across boots: every regular file is read and
// hashed on every boot.
const hashCacheSize = 4096

type cacheKey struct {
	path    string
	size    int64
	modUnix int64
}

// Run scans workspaceRoot, merges the result against store's persisted
// state (treating "persisted" as side A and "live" as side B of the
// reconciler), and applies the resulting updates/deletes to store. It
// returns the post-merge snapshot.
func Run(workspaceRoot string, store *syncstate.Store, ignoreList *ignore.List) (syncstate.Map, error) {
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("stateinit: load persisted state: %w", err)
	}
	persisted := store.Snapshot()

	live, err := scan(workspaceRoot, ignoreList)
	if err != nil {
		return nil, fmt.Errorf("stateinit: scan workspace: %w", err)
	}

	result := reconcile.Run(persisted, live)

	if err := store.Batch(func(m syncstate.Map) {
		for _, path := range result.BSend {
			// live wins over the persisted copy: adopt the scanned entry
			m[path] = live[path]
		}
		for _, path := range result.ADel {
			// live is authoritative for the deletion of a persisted path
			m[path] = live[path]
		}
		for _, path := range result.ASend {
			if entry, onDisk := live[path]; onDisk {
				// both sides live with differing content and the persisted
				// entry is newer: the file on disk is what the workspace
				// holds now, so adopt the scanned entry.
				m[path] = entry
				continue
			}
			// persisted still calls this path live, but the scan found
			// nothing there: it was deleted while this process wasn't
			// running. Tombstone it rather than leave a stale live entry
			// behind, carrying forward the persisted entry's own
			// last_modified rather than stamping it with now.
			m[path] = syncstate.Tombstone(persisted[path].LastModified)
		}
		// BDel is asymmetric info only meaningful between distinct peers;
		// here "B" (live) has no counterpart to push to, so a persisted
		// tombstone for a path that still doesn't exist is simply left as
		// it already is.
	}); err != nil {
		return nil, fmt.Errorf("stateinit: persist merged state: %w", err)
	}

	return store.Snapshot(), nil
}

// scan walks workspaceRoot recursively, skipping ignored paths, and
// computes a live FileEntry for every remaining file.
func scan(workspaceRoot string, ignoreList *ignore.List) (syncstate.Map, error) {
	cache, _ := lru.New[cacheKey, string](hashCacheSize)
	out := make(syncstate.Map)

	err := filepath.WalkDir(workspaceRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("stateinit: walk error", "path", path, "error", walkErr)
			return nil
		}

		relPath, relErr := filepath.Rel(workspaceRoot, path)
		if relErr != nil {
			return nil
		}
		relPath = normPath(relPath)
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if relPath == ".synclite" || strings.HasPrefix(relPath, ".synclite/") {
				return filepath.SkipDir
			}
			return nil
		}

		if ignoreList.ShouldIgnore(relPath) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			slog.Warn("stateinit: stat failed", "path", path, "error", infoErr)
			return nil
		}
		if !info.Mode().IsRegular() {
			// symlinks and other special files: not followed
			return nil
		}

		key := cacheKey{path: relPath, size: info.Size(), modUnix: info.ModTime().UnixNano()}
		hash, ok := cache.Get(key)
		if !ok {
			var hashErr error
			hash, hashErr = hashsum.File(path)
			if hashErr != nil {
				slog.Warn("stateinit: hash failed", "path", path, "error", hashErr)
				return nil
			}
			cache.Add(key, hash)
		}

		out[relPath] = syncstate.Live(hash, info.ModTime().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func normPath(path string) string {
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, string(filepath.Separator), "/")
	return path
}
