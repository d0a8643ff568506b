// Package hashsum computes the content digest used to detect whether a
// file's bytes changed between two scans of the workspace.
package hashsum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File reads path in full and returns the lowercase hex SHA-256 digest of
// its bytes. Symlinks are followed by the underlying os.Open call; a
// dangling symlink or one pointing at a directory makes File return an
// error. The workspace scan in internal/stateinit skips symlinks before
// ever calling File.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashsum: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashsum: read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the lowercase hex SHA-256 digest of b, for content already
// held in memory (e.g. a frame just received over the wire).
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
