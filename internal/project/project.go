// Package project detects the workspace a path belongs to: its
// worktree root, its VCS, and a stable identifier the persistence
// layer can scope sessions and error memories to.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opencode-ai/opencode-engine/pkg/types"
)

// cache stores detected projects by directory so repeated lookups from
// the same subtree don't re-walk the filesystem.
var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*types.Project)
)

// Detect resolves the project containing directory. For a directory
// under git control the worktree root (the directory holding .git) is
// the project; anywhere else the directory itself is, with an empty
// VCS. The ID is a stable hash of the worktree path, so every
// subdirectory of the same checkout maps to the same project.
func Detect(directory string) (*types.Project, error) {
	directory, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}

	cacheMu.RLock()
	if p, ok := cache[directory]; ok {
		cacheMu.RUnlock()
		return p, nil
	}
	cacheMu.RUnlock()

	worktree := directory
	vcs := ""
	if root := findWorktreeRoot(directory); root != "" {
		worktree = root
		vcs = "git"
	}

	created := time.Now().UnixMilli()
	if info, err := os.Stat(worktree); err == nil {
		created = info.ModTime().UnixMilli()
	}

	p := &types.Project{
		ID:       hashPath(worktree),
		Worktree: worktree,
		VCS:      vcs,
		Time:     types.ProjectTime{Created: created},
	}

	cacheMu.Lock()
	cache[directory] = p
	cacheMu.Unlock()
	return p, nil
}

// hashPath derives the project id from the worktree path.
func hashPath(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:])[:16]
}

// findWorktreeRoot walks up from start looking for a .git entry and
// returns the directory containing it, or "" when start isn't under
// git control. A .git file (linked worktrees, submodules) counts the
// same as a .git directory; its target doesn't matter here, only
// where the worktree boundary is.
func findWorktreeRoot(start string) string {
	current := start
	for {
		gitPath := filepath.Join(current, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return current
			}
			if content, err := os.ReadFile(gitPath); err == nil &&
				strings.HasPrefix(strings.TrimSpace(string(content)), "gitdir: ") {
				return current
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// ClearCache clears the detection cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]*types.Project)
}
