package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode-engine/pkg/types"
)

// isolate points the global config directory at an empty temp dir so
// a developer's real ~/.config/opencode never leaks into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENCODE_EMBEDDING_URL", "")
	t.Setenv("OPENCODE_EMBEDDING_MODEL", "")
	t.Setenv("OPENCODE_VECTOR_STORE_URL", "")
	t.Setenv("OPENCODE_MEMORY_DB", "")
	t.Setenv("OPENCODE_DISABLE_LSP_DOWNLOAD", "")
}

func writeProjectConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, ".opencode", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadProjectConfig(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	writeProjectConfig(t, tmpDir, "opencode.json", `{
		"index": {
			"embeddingURL": "http://localhost:11434",
			"embeddingModel": "nomic-embed-text",
			"chunkSize": 1000,
			"chunkOverlap": 100
		},
		"memory": {
			"halfLifeDays": 14
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	require.NotNil(t, cfg.Index)
	assert.Equal(t, "http://localhost:11434", cfg.Index.EmbeddingURL)
	assert.Equal(t, "nomic-embed-text", cfg.Index.EmbeddingModel)
	assert.Equal(t, 1000, cfg.Index.ChunkSize)
	assert.Equal(t, 100, cfg.Index.ChunkOverlap)

	require.NotNil(t, cfg.Memory)
	assert.Equal(t, float64(14), cfg.Memory.HalfLifeDays)
}

func TestLoadJSONCConfig(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	writeProjectConfig(t, tmpDir, "opencode.jsonc", `{
		// where the vector store lives
		"index": {
			"vectorStoreURL": "http://localhost:6333", // qdrant
			/* chunking */
			"chunkSize": 1500
		},
		"lsp": {
			"disableDownload": true
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	require.NotNil(t, cfg.Index)
	assert.Equal(t, "http://localhost:6333", cfg.Index.VectorStoreURL)
	assert.Equal(t, 1500, cfg.Index.ChunkSize)
	require.NotNil(t, cfg.LSP)
	assert.True(t, cfg.LSP.DisableDownload)
}

func TestLoadYAMLConfig(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	writeProjectConfig(t, tmpDir, "opencode.yaml", `
index:
  embeddingURL: http://localhost:11434
  collectionName: engine_test
memory:
  minConfidence: 0.3
snapshot:
  retentionMs: 3600000
`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	require.NotNil(t, cfg.Index)
	assert.Equal(t, "http://localhost:11434", cfg.Index.EmbeddingURL)
	assert.Equal(t, "engine_test", cfg.Index.CollectionName)
	require.NotNil(t, cfg.Memory)
	assert.Equal(t, 0.3, cfg.Memory.MinConfidence)
	require.NotNil(t, cfg.Snapshot)
	assert.Equal(t, int64(3600000), cfg.Snapshot.RetentionMs)
}

func TestProjectOverridesGlobal(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	globalDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "opencode")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "opencode.json"), []byte(`{
		"index": {"embeddingModel": "global-model", "chunkSize": 500},
		"memory": {"halfLifeDays": 30}
	}`), 0644))

	writeProjectConfig(t, tmpDir, "opencode.json", `{
		"index": {"embeddingModel": "project-model"}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	// The project's index section replaces the global one wholesale.
	require.NotNil(t, cfg.Index)
	assert.Equal(t, "project-model", cfg.Index.EmbeddingModel)
	assert.Zero(t, cfg.Index.ChunkSize)

	// Sections the project doesn't touch survive from the global file.
	require.NotNil(t, cfg.Memory)
	assert.Equal(t, float64(30), cfg.Memory.HalfLifeDays)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	writeProjectConfig(t, tmpDir, "opencode.json", `{
		"index": {"embeddingURL": "http://file:1111"}
	}`)

	t.Setenv("OPENCODE_EMBEDDING_URL", "http://env:2222")
	t.Setenv("OPENCODE_VECTOR_STORE_URL", "http://env:6333")
	t.Setenv("OPENCODE_MEMORY_DB", "/tmp/engine-test.db")
	t.Setenv("OPENCODE_DISABLE_LSP_DOWNLOAD", "1")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "http://env:2222", cfg.Index.EmbeddingURL)
	assert.Equal(t, "http://env:6333", cfg.Index.VectorStoreURL)
	require.NotNil(t, cfg.Memory)
	assert.Equal(t, "/tmp/engine-test.db", cfg.Memory.DBPath)
	require.NotNil(t, cfg.LSP)
	assert.True(t, cfg.LSP.DisableDownload)
}

func TestLoadMissingFilesYieldsEmptyConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Nil(t, cfg.Index)
	assert.Nil(t, cfg.Memory)
	assert.Nil(t, cfg.LSP)
	assert.Nil(t, cfg.Snapshot)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	cfg := &types.Config{
		Index: &types.IndexConfig{
			EmbeddingURL:   "http://localhost:11434",
			CollectionName: "roundtrip",
			ChunkSize:      2000,
		},
		LSP: &types.LSPConfig{
			Servers: map[string][]string{
				"gopls": {"gopls", "-remote=auto"},
			},
		},
	}

	path := filepath.Join(tmpDir, ".opencode", "opencode.json")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(tmpDir)
	require.NoError(t, err)

	require.NotNil(t, loaded.Index)
	assert.Equal(t, cfg.Index.EmbeddingURL, loaded.Index.EmbeddingURL)
	assert.Equal(t, cfg.Index.CollectionName, loaded.Index.CollectionName)
	assert.Equal(t, cfg.Index.ChunkSize, loaded.Index.ChunkSize)
	require.NotNil(t, loaded.LSP)
	assert.Equal(t, cfg.LSP.Servers["gopls"], loaded.LSP.Servers["gopls"])
}

func TestGetPathsHonorsXDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	paths := GetPaths()
	assert.Equal(t, filepath.Join(tmp, "opencode"), paths.Config)
}

func TestEnsurePathsCreatesDirectories(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))

	paths := GetPaths()
	require.NoError(t, paths.EnsurePaths())

	for _, dir := range []string{paths.Data, paths.Config, paths.Cache, paths.State} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
