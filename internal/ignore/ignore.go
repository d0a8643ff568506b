// Package ignore compiles the gitignore-style rules consulted by the state
// scanner and the watcher before either ever touches a path.
package ignore

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

const fileName = ".syncliteignore"

// defaultLines are always in effect, regardless of whether the workspace
// carries a .syncliteignore file.
var defaultLines = []string{
	".synclite/",
	".synclite",
	// editor/atomic-save artifacts
	"*.swp",
	"*.swx",
	"*~",
	"*.tmp",
	"*.part",
	// OS cruft
	".DS_Store",
	"Thumbs.db",
	// VCS directories, in case a workspace is also a git checkout
	".git/",
}

// List is a compiled set of ignore rules over workspace-relative paths.
type List struct {
	matcher *gitignore.GitIgnore
}

// Load reads <workspaceRoot>/.syncliteignore (if present) and compiles it
// together with the built-in defaults. A missing or unreadable file is not
// an error: the built-ins alone are still a valid List.
func Load(workspaceRoot string) *List {
	lines := append([]string(nil), defaultLines...)

	path := filepath.Join(workspaceRoot, fileName)
	if custom, err := readLines(path); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ignore list: failed to read .syncliteignore", "path", path, "error", err)
		}
	} else {
		lines = append(lines, custom...)
	}

	return &List{matcher: gitignore.CompileIgnoreLines(lines...)}
}

// ShouldIgnore reports whether relPath (forward-slash, workspace-relative)
// matches any compiled rule.
func (l *List) ShouldIgnore(relPath string) bool {
	if l == nil || l.matcher == nil {
		return false
	}
	// belt-and-suspenders: the explicit .synclite skip is also required
	// independently by the scanner and the watcher.
	if relPath == ".synclite" || strings.HasPrefix(relPath, ".synclite/") {
		return true
	}
	return l.matcher.MatchesPath(relPath)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}
