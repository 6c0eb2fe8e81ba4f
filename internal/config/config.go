package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/opencode-engine/pkg/types"
)

// configFileNames are tried in order within each config directory;
// later files override earlier ones.
var configFileNames = []string{
	"opencode.json",
	"opencode.jsonc",
	"opencode.yaml",
	"opencode.yml",
}

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/opencode/)
// 2. Project config (.opencode/)
// 3. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{}

	// 1. Global config
	globalPath := GetPaths().Config
	for _, name := range configFileNames {
		loadConfigFile(filepath.Join(globalPath, name), config)
	}

	// 2. Project config
	if directory != "" {
		for _, name := range configFileNames {
			loadConfigFile(filepath.Join(directory, ".opencode", name), config)
		}
	}

	// 3. Environment variables
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file, dispatching on extension.
// A missing file is not an error; the source is simply skipped.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fileConfig types.Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		// Route YAML through the JSON field names so both formats
		// share one set of struct tags.
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return err
		}
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(jsonData, &fileConfig); err != nil {
			return err
		}
	case ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return err
		}
	default:
		if err := json.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// mergeConfig merges source config into target. Sections replace
// wholesale: a project file that sets `index` owns the whole index
// section rather than field-merging into the global one.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.LSP != nil {
		target.LSP = source.LSP
	}
	if source.Watcher != nil {
		target.Watcher = source.Watcher
	}
	if source.Index != nil {
		target.Index = source.Index
	}
	if source.Memory != nil {
		target.Memory = source.Memory
	}
	if source.Snapshot != nil {
		target.Snapshot = source.Snapshot
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if embeddingURL := os.Getenv("OPENCODE_EMBEDDING_URL"); embeddingURL != "" {
		ensureIndex(config).EmbeddingURL = embeddingURL
	}
	if model := os.Getenv("OPENCODE_EMBEDDING_MODEL"); model != "" {
		ensureIndex(config).EmbeddingModel = model
	}
	if vectorURL := os.Getenv("OPENCODE_VECTOR_STORE_URL"); vectorURL != "" {
		ensureIndex(config).VectorStoreURL = vectorURL
	}
	if dbPath := os.Getenv("OPENCODE_MEMORY_DB"); dbPath != "" {
		if config.Memory == nil {
			config.Memory = &types.MemoryConfig{}
		}
		config.Memory.DBPath = dbPath
	}
	if os.Getenv("OPENCODE_DISABLE_LSP_DOWNLOAD") != "" {
		if config.LSP == nil {
			config.LSP = &types.LSPConfig{}
		}
		config.LSP.DisableDownload = true
	}
}

func ensureIndex(config *types.Config) *types.IndexConfig {
	if config.Index == nil {
		config.Index = &types.IndexConfig{}
	}
	return config.Index
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
