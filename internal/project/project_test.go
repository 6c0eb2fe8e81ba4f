package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_NonVCSDirectoryIsItsOwnProject(t *testing.T) {
	t.Cleanup(ClearCache)
	tmp := t.TempDir()

	p, err := Detect(tmp)
	require.NoError(t, err)

	// TempDir may sit behind a symlink (macOS /var -> /private/var);
	// resolve both sides before comparing.
	want, _ := filepath.EvalSymlinks(tmp)
	got, _ := filepath.EvalSymlinks(p.Worktree)
	assert.Equal(t, want, got)
	assert.Empty(t, p.VCS)
	assert.Len(t, p.ID, 16)
}

func TestDetect_FindsWorktreeRootFromSubdirectory(t *testing.T) {
	t.Cleanup(ClearCache)
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, ".git"), 0o755))
	sub := filepath.Join(tmp, "internal", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	p, err := Detect(sub)
	require.NoError(t, err)
	assert.Equal(t, tmp, p.Worktree)
	assert.Equal(t, "git", p.VCS)
}

func TestDetect_GitFileCountsAsWorktreeBoundary(t *testing.T) {
	t.Cleanup(ClearCache)
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".git"), []byte("gitdir: /elsewhere/.git/worktrees/x\n"), 0o644))

	p, err := Detect(tmp)
	require.NoError(t, err)
	assert.Equal(t, "git", p.VCS)
	assert.Equal(t, tmp, p.Worktree)
}

func TestDetect_SameWorktreeSameID(t *testing.T) {
	t.Cleanup(ClearCache)
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, ".git"), 0o755))
	subA := filepath.Join(tmp, "a")
	subB := filepath.Join(tmp, "b")
	require.NoError(t, os.MkdirAll(subA, 0o755))
	require.NoError(t, os.MkdirAll(subB, 0o755))

	pa, err := Detect(subA)
	require.NoError(t, err)
	pb, err := Detect(subB)
	require.NoError(t, err)

	assert.Equal(t, pa.ID, pb.ID, "every subdirectory of a checkout must map to one project")
}

func TestDetect_CachesByDirectory(t *testing.T) {
	t.Cleanup(ClearCache)
	tmp := t.TempDir()

	first, err := Detect(tmp)
	require.NoError(t, err)
	second, err := Detect(tmp)
	require.NoError(t, err)

	assert.Same(t, first, second)
}
