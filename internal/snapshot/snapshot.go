package snapshot

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// errNotVCS is the defined error string every operation returns when
// projectDir isn't under VCS control; nothing in this package panics
// on a missing repository.
const errNotVCS = "not a VCS repository"

// refNamespace is where snapshot refs live, kept under a product
// namespace so cleanup can walk and age them out without colliding
// with the user's own refs.
const refNamespace = "refs/opencode-engine/snapshots"

// TrackResult is track's outcome.
type TrackResult struct {
	Success bool
	Hash    string
	Error   string
}

// FileChange summarizes one file's change within a DiffResult.
type FileChange struct {
	Path      string
	Additions int
	Deletions int
	Status    string // "added" | "modified" | "deleted" | "renamed"
}

// DiffResult is diff's outcome.
type DiffResult struct {
	Success bool
	Files   []FileChange
	Patch   string
	Error   string
}

// Result is the generic {success, error?} outcome for restore,
// revertFiles and cleanup.
type Result struct {
	Success bool
	Error   string
}

// Track stages everything in projectDir and writes a tree object,
// returning its content-addressed hash. message isn't attached to
// anything since a bare tree object carries no commit metadata; callers that
// want a message recorded should keep it alongside the hash
// themselves (e.g. in a session's revert record).
func Track(projectDir string, message string) TrackResult {
	if !isVCSRepo(projectDir) {
		return TrackResult{Error: errNotVCS}
	}

	l := lockFor(projectDir)
	if err := l.lock(); err != nil {
		return TrackResult{Error: err.Error()}
	}
	defer l.unlock()

	if _, err := runGit(projectDir, "add", "-A"); err != nil {
		return TrackResult{Error: err.Error()}
	}

	hash, err := runGit(projectDir, "write-tree")
	if err != nil {
		return TrackResult{Error: err.Error()}
	}

	refName := snapshotRefName(hash)
	if _, err := runGit(projectDir, "update-ref", refName, hash); err != nil {
		return TrackResult{Error: err.Error()}
	}

	return TrackResult{Success: true, Hash: hash}
}

// Diff returns a per-file summary and unified patch comparing the
// snapshot tree hash against the project's current working tree.
func Diff(projectDir, hash string) DiffResult {
	if !isVCSRepo(projectDir) {
		return DiffResult{Error: errNotVCS}
	}

	nameStatus, err := runGit(projectDir, "diff", "--name-status", hash)
	if err != nil {
		return DiffResult{Error: err.Error()}
	}
	numstat, err := runGit(projectDir, "diff", "--numstat", hash)
	if err != nil {
		return DiffResult{Error: err.Error()}
	}
	patch, err := runGit(projectDir, "diff", hash)
	if err != nil {
		return DiffResult{Error: err.Error()}
	}

	files := mergeFileChanges(nameStatus, numstat)
	return DiffResult{Success: true, Files: files, Patch: patch}
}

// Restore reads the snapshot tree into the index then checks it out,
// overwriting the working tree.
func Restore(projectDir, hash string) Result {
	if !isVCSRepo(projectDir) {
		return Result{Error: errNotVCS}
	}

	l := lockFor(projectDir)
	if err := l.lock(); err != nil {
		return Result{Error: err.Error()}
	}
	defer l.unlock()

	if _, err := runGit(projectDir, "read-tree", hash); err != nil {
		return Result{Error: err.Error()}
	}
	if _, err := runGit(projectDir, "checkout-index", "-a", "-f"); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true}
}

// RevertFiles runs a targeted checkout of each path from the snapshot
// tree, leaving every other file untouched.
func RevertFiles(projectDir, hash string, files []string) Result {
	if !isVCSRepo(projectDir) {
		return Result{Error: errNotVCS}
	}

	l := lockFor(projectDir)
	if err := l.lock(); err != nil {
		return Result{Error: err.Error()}
	}
	defer l.unlock()

	for _, f := range files {
		args := append([]string{"checkout", hash, "--"}, f)
		if _, err := runGit(projectDir, args...); err != nil {
			return Result{Error: err.Error()}
		}
	}
	return Result{Success: true}
}

// Cleanup removes snapshot refs older than retentionMs.
func Cleanup(projectDir string, retentionMs int64) Result {
	if !isVCSRepo(projectDir) {
		return Result{Error: errNotVCS}
	}

	out, err := runGit(projectDir, "for-each-ref", "--format=%(refname)", refNamespace)
	if err != nil {
		return Result{Error: err.Error()}
	}
	if out == "" {
		return Result{Success: true}
	}

	cutoff := time.Now().UnixMilli() - retentionMs
	for _, ref := range strings.Split(out, "\n") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		ts := refTimestamp(ref)
		if ts == 0 || ts >= cutoff {
			continue
		}
		if _, err := runGit(projectDir, "update-ref", "-d", ref); err != nil {
			return Result{Error: err.Error()}
		}
	}
	return Result{Success: true}
}

func snapshotRefName(hash string) string {
	return fmt.Sprintf("%s/%d-%s", refNamespace, time.Now().UnixMilli(), hash)
}

// refTimestamp extracts the millisecond timestamp embedded in a
// snapshot ref name by Track, or 0 if the ref doesn't match that shape.
func refTimestamp(ref string) int64 {
	parts := strings.Split(ref, "/")
	last := parts[len(parts)-1]
	tsPart, _, ok := strings.Cut(last, "-")
	if !ok {
		return 0
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func isVCSRepo(projectDir string) bool {
	_, err := runGit(projectDir, "rev-parse", "--git-dir")
	return err == nil
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var detail []byte
		if ee, ok := err.(*exec.ExitError); ok {
			detail = ee.Stderr
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(detail)))
	}
	return strings.TrimSpace(string(out)), nil
}

// mergeFileChanges combines `git diff --name-status` and
// `git diff --numstat` output (same file ordering) into FileChanges.
func mergeFileChanges(nameStatus, numstat string) []FileChange {
	additions := map[string][2]int{} // path -> [additions, deletions]
	for _, line := range strings.Split(numstat, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		add, _ := strconv.Atoi(fields[0])
		del, _ := strconv.Atoi(fields[1])
		path := fields[2]
		additions[path] = [2]int{add, del}
	}

	var out []FileChange
	for _, line := range strings.Split(nameStatus, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status := statusWord(fields[0])
		path := fields[len(fields)-1]
		counts := additions[path]
		out = append(out, FileChange{
			Path:      path,
			Status:    status,
			Additions: counts[0],
			Deletions: counts[1],
		})
	}
	return out
}

func statusWord(code string) string {
	switch code[0] {
	case 'A':
		return "added"
	case 'D':
		return "deleted"
	case 'R':
		return "renamed"
	default:
		return "modified"
	}
}
