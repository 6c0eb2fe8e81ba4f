// Package snapshot implements content-addressed file-tree snapshotting
// on top of host VCS plumbing: every operation shells out to git
// (exec.Command, cmd.Dir = projectDir, trimmed stdout), using
// tree-writing and checkout plumbing commands rather than
// branch/commit inspection.
package snapshot
