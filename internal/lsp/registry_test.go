package lsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CandidatesOrdersDenoBeforeNode(t *testing.T) {
	r := NewRegistry()
	candidates := r.Candidates("main.ts")
	require.Len(t, candidates, 2)
	assert.Equal(t, "deno", candidates[0].ServerID)
	assert.Equal(t, "typescript-language-server", candidates[1].ServerID)
}

func TestRegistry_CandidatesEmptyForUnknownExtension(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Candidates("README.md"))
}

func TestResolveRoot_WalksUpwardToMarker(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "go.mod"), []byte("module x\n"), 0o644))
	sub := filepath.Join(tmp, "internal", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(sub, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package pkg\n"), 0o644))

	d := Descriptor{ServerID: "gopls", RootMarkers: []string{"go.mod"}}
	root, ok := ResolveRoot(file, tmp, d)
	require.True(t, ok)
	assert.Equal(t, tmp, root)
}

func TestResolveRoot_NeverWalksAboveProjectDir(t *testing.T) {
	tmp := t.TempDir()
	// Marker above the project dir must not be picked up.
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "go.mod"), []byte("module outer\n"), 0o644))
	projectDir := filepath.Join(tmp, "project")
	sub := filepath.Join(projectDir, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(sub, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package pkg\n"), 0o644))

	d := Descriptor{ServerID: "gopls", RootMarkers: []string{"go.mod"}}
	root, ok := ResolveRoot(file, projectDir, d)
	require.True(t, ok)
	assert.Equal(t, projectDir, root, "walk must stop at projectDir and fall back to it")
}

func TestResolveRoot_RequiresMarkerFailsWithoutOne(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "main.ts")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	d := Descriptor{ServerID: "deno", RootMarkers: []string{"deno.json"}, RequiresMarker: true}
	_, ok := ResolveRoot(file, tmp, d)
	assert.False(t, ok)
}

func TestResolveRoot_FallsBackToProjectDirWithoutRequiresMarker(t *testing.T) {
	tmp := t.TempDir()
	sub := filepath.Join(tmp, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(sub, "main.ts")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	d := Descriptor{ServerID: "typescript-language-server", RootMarkers: []string{"package.json"}}
	root, ok := ResolveRoot(file, tmp, d)
	require.True(t, ok)
	assert.Equal(t, tmp, root)
}

func TestResolveRoot_FallsBackToFileDirWithoutProjectDir(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "main.ts")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	d := Descriptor{ServerID: "typescript-language-server", RootMarkers: []string{"package.json"}}
	root, ok := ResolveRoot(file, "", d)
	require.True(t, ok)
	assert.Equal(t, tmp, root)
}
