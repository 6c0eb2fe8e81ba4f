// Package config provides configuration loading, merging, and path
// management for the engine.
//
// # Configuration Loading
//
// Load merges configuration from three sources in priority order:
//
//  1. Global config (~/.config/opencode/, XDG compatible)
//  2. Project config (<projectDir>/.opencode/)
//  3. Environment variables
//
// Within each directory, opencode.json, opencode.jsonc, opencode.yaml
// and opencode.yml are all consulted, later files overriding earlier
// ones. Sections (index, memory, lsp, watcher, snapshot) replace
// wholesale rather than field-merging, so the file that names a
// section owns it.
//
// # Supported Formats
//
//   - opencode.json  - standard JSON
//   - opencode.jsonc - JSON with comments, stripped via tidwall/jsonc
//   - opencode.yaml  - YAML, decoded through the same JSON field names
//
// # Environment Variable Overrides
//
//   - OPENCODE_EMBEDDING_URL        - embedding server base URL
//   - OPENCODE_EMBEDDING_MODEL      - embedding model name
//   - OPENCODE_VECTOR_STORE_URL     - vector store base URL
//   - OPENCODE_MEMORY_DB            - error-memory database path
//   - OPENCODE_DISABLE_LSP_DOWNLOAD - opt out of LSP binary auto-install
//
// # Path Management
//
// GetPaths returns XDG Base Directory compliant paths:
//   - Data:   ~/.local/share/opencode (XDG_DATA_HOME)
//   - Config: ~/.config/opencode      (XDG_CONFIG_HOME)
//   - Cache:  ~/.cache/opencode       (XDG_CACHE_HOME)
//   - State:  ~/.local/state/opencode (XDG_STATE_HOME)
//
// On Windows these fall back to APPDATA. The single database file
// backing sessions and error memories lives under Data (DBPath), and
// auto-installed language-server binaries land under Cache
// (LSPBinPath).
package config
