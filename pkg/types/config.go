package types

// Config is the engine configuration, merged from the global config
// directory, the project's .opencode directory and environment
// overrides. Only the sections the engines consume are modeled;
// unknown keys in a config file are ignored so the same file can be
// shared with the wider toolchain.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// LSP multiplexer settings
	LSP *LSPConfig `json:"lsp,omitempty"`

	// File watcher settings
	Watcher *WatcherConfig `json:"watcher,omitempty"`

	// Semantic code index (embedding + vector store)
	Index *IndexConfig `json:"index,omitempty"`

	// Error-memory store
	Memory *MemoryConfig `json:"memory,omitempty"`

	// Snapshot/revert layer
	Snapshot *SnapshotConfig `json:"snapshot,omitempty"`
}

// LSPConfig holds LSP multiplexer configuration.
type LSPConfig struct {
	Disabled bool `json:"disabled,omitempty"`
	// DisableDownload opts out of auto-installing a missing server
	// binary into the cache directory; when set, a server whose
	// binary is absent is simply skipped.
	DisableDownload bool `json:"disableDownload,omitempty"`
	// Servers overrides the spawn argv per server id.
	Servers map[string][]string `json:"servers,omitempty"`
}

// WatcherConfig holds file watcher configuration.
type WatcherConfig struct {
	Ignore []string `json:"ignore,omitempty"`
}

// IndexConfig configures the semantic code-index pipeline: where the
// embedding server and vector store live, and how source is chunked.
type IndexConfig struct {
	Disabled       bool     `json:"disabled,omitempty"`
	EmbeddingURL   string   `json:"embeddingURL,omitempty"`   // default http://localhost:11434
	EmbeddingModel string   `json:"embeddingModel,omitempty"` // default nomic-embed-text
	VectorStoreURL string   `json:"vectorStoreURL,omitempty"` // default http://localhost:6333
	CollectionName string   `json:"collectionName,omitempty"` // default opencode_index
	ChunkSize      int      `json:"chunkSize,omitempty"`      // default 1500 characters
	ChunkOverlap   int      `json:"chunkOverlap,omitempty"`   // default 200 characters
	Extensions     []string `json:"extensions,omitempty"`     // additional extensions to index
	Ignore         []string `json:"ignore,omitempty"`         // additional directories to skip
}

// MemoryConfig configures the error-memory store's decay and pruning.
type MemoryConfig struct {
	Disabled      bool    `json:"disabled,omitempty"`
	DBPath        string  `json:"dbPath,omitempty"`
	HalfLifeDays  float64 `json:"halfLifeDays,omitempty"`
	MaxAgeDays    float64 `json:"maxAgeDays,omitempty"`
	MinConfidence float64 `json:"minConfidence,omitempty"`
}

// SnapshotConfig configures the snapshot layer's ref retention.
type SnapshotConfig struct {
	// RetentionMs is how long snapshot refs are kept before cleanup
	// removes them. Zero means the caller's default applies.
	RetentionMs int64 `json:"retentionMs,omitempty"`
}
