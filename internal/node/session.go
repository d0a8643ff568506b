package node

import (
	"fmt"
	"log/slog"

	"github.com/synclite/synclite/internal/hashsum"
)

// applyWrites writes each path's content to the sandboxed workspace and
// updates the sync-state store, recording every file on the status
// reporter. It is always called with the echo-suppression flag already
// set by the caller.
func (d *Deps) applyWrites(files map[string]string) error {
	for path, content := range files {
		if err := d.FS.WriteFile(path, []byte(content)); err != nil {
			return fmt.Errorf("node: write %s: %w", path, err)
		}
		hash := hashsum.Bytes([]byte(content))
		if err := d.Store.Update(path, hash); err != nil {
			return fmt.Errorf("node: persist update for %s: %w", path, err)
		}
		d.Status.RecordReceived(path, len(content))
	}
	return nil
}

// applyDeletes deletes each path from the sandboxed workspace and tombs
// it in the sync-state store. Always called under echo-suppression.
func (d *Deps) applyDeletes(paths []string) error {
	for _, path := range paths {
		if err := d.FS.DeleteFile(path); err != nil {
			return fmt.Errorf("node: delete %s: %w", path, err)
		}
		if err := d.Store.Delete(path); err != nil {
			return fmt.Errorf("node: persist delete for %s: %w", path, err)
		}
	}
	return nil
}

// readFiles reads each path's content from the sandboxed workspace,
// skipping (and logging) any that fail rather than aborting the whole
// batch — a peer request for a path that's vanished since reconciliation
// shouldn't crash the connection.
func (d *Deps) readFiles(paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		content, err := d.FS.ReadFile(path)
		if err != nil {
			slog.Warn("node: failed to read file for peer", "path", path, "error", err)
			continue
		}
		out[path] = string(content)
		d.Status.RecordSent(path, len(content))
	}
	return out
}
