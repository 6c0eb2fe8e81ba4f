package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/logging"
)

// log tags every line this package emits with the index component.
var log = logging.For("index")

// defaultIgnoreDirs names directories the walker never descends into.
var defaultIgnoreDirs = map[string]bool{
	"node_modules":   true,
	".git":           true,
	"dist":           true,
	"build":          true,
	".next":          true,
	"target":         true,
	"coverage":       true,
	"__pycache__":    true,
}

// defaultIgnoreFiles names lockfiles the walker never indexes.
var defaultIgnoreFiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":     true,
	"go.sum":             true,
	"Cargo.lock":         true,
	"composer.lock":      true,
}

// defaultExtensions is the whitelist of source extensions the indexer
// accepts.
var defaultExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".c": true, ".h": true,
	".cpp": true, ".hpp": true, ".rb": true, ".php": true, ".cs": true,
	".swift": true, ".kt": true, ".scala": true, ".md": true, ".json": true,
	".yaml": true, ".yml": true,
}

// Chunk is a line-aligned slice of a source file with a stable id
// derived from (filePath, startLine), so re-indexing the same position
// in the same file replaces it in place rather than duplicating it.
type Chunk struct {
	ID        string
	FilePath  string
	Language  string
	StartLine int
	EndLine   int
	Text      string
	IndexedAt int64
}

// Options configures chunk sizing and the ignore/extension sets.
type Options struct {
	ChunkSize    int // target chunk size in characters, default 1500
	ChunkOverlap int // characters carried into the next chunk, default 200
	Extensions   map[string]bool
	IgnoreDirs   map[string]bool
	IgnoreFiles  map[string]bool

	// IgnorePatterns are additional glob patterns (relative to the
	// project root) matched with the compiled matcher in matcher.go,
	// on top of the fixed ignore set.
	IgnorePatterns []string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1500
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = 200
	}
	if o.Extensions == nil {
		o.Extensions = defaultExtensions
	}
	if o.IgnoreDirs == nil {
		o.IgnoreDirs = defaultIgnoreDirs
	}
	if o.IgnoreFiles == nil {
		o.IgnoreFiles = defaultIgnoreFiles
	}
	return o
}

// Progress reports incremental indexing state; called once per file
// indexed.
type Progress func(filePath string, filesIndexed, totalFiles int)

// Result summarizes one indexAll run.
type Result struct {
	FilesIndexed  int
	ChunksCreated int
	Duration      time.Duration
}

// Indexer walks a project tree, chunks source with overlap, embeds
// each chunk through an EmbeddingClient, and upserts the points into a
// VectorStoreClient.
type Indexer struct {
	projectDir string
	embedder   *EmbeddingClient
	store      *VectorStoreClient
	opts       Options
	matcher    *compiledMatcher

	initialized bool
}

// NewIndexer constructs an indexer rooted at projectDir.
func NewIndexer(projectDir string, embedder *EmbeddingClient, store *VectorStoreClient, opts Options) *Indexer {
	return &Indexer{
		projectDir: projectDir,
		embedder:   embedder,
		store:      store,
		opts:       opts.withDefaults(),
		matcher:    newCompiledMatcher(),
	}
}

// ensureInitialized probes the embedding dimension and ensures the
// vector-store collection exists, on first use only.
func (ix *Indexer) ensureInitialized(ctx context.Context) error {
	if ix.initialized {
		return nil
	}
	dim, err := ix.embedder.GetDimension(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Transport, err, "index: probe embedding dimension")
	}
	if err := ix.store.InitCollection(ctx, dim); err != nil {
		return err
	}
	ix.initialized = true
	return nil
}

// IndexAll walks the project, skipping the ignore set and accepting
// only whitelisted extensions, chunking and embedding each accepted
// file, and upserting the resulting points in a single call per file.
// Per-file failures are logged and skipped; the walk continues.
func (ix *Indexer) IndexAll(ctx context.Context, progress Progress) (Result, error) {
	start := time.Now()
	if err := ix.ensureInitialized(ctx); err != nil {
		return Result{}, err
	}

	files, err := ix.collectFiles()
	if err != nil {
		return Result{}, apperr.Wrap(apperr.NotFound, err, "index: walk project")
	}

	res := Result{}
	for _, f := range files {
		select {
		case <-ctx.Done():
			return res, apperr.Wrap(apperr.Cancelled, ctx.Err(), "index: cancelled")
		default:
		}

		n, err := ix.indexFile(ctx, f)
		if err != nil {
			log.Warn().Err(err).Str("file", f).Msg("skipping file after embedding failure")
			continue
		}
		res.FilesIndexed++
		res.ChunksCreated += n
		if progress != nil {
			progress(f, res.FilesIndexed, len(files))
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	rel, err := filepath.Rel(ix.projectDir, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	chunks := chunkText(rel, languageForExt(filepath.Ext(path)), string(data), ix.opts.ChunkSize, ix.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now().UnixMilli()
	points := make([]Point, 0, len(chunks))
	for i := range chunks {
		chunks[i].IndexedAt = now
		vec, err := ix.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return 0, err
		}
		points = append(points, Point{
			ID:     chunks[i].ID,
			Vector: vec,
			Payload: map[string]any{
				"filePath":  chunks[i].FilePath,
				"language":  chunks[i].Language,
				"startLine": chunks[i].StartLine,
				"endLine":   chunks[i].EndLine,
				"text":      chunks[i].Text,
				"indexedAt": chunks[i].IndexedAt,
			},
		})
	}

	if err := ix.store.Upsert(ctx, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// Search embeds query once and delegates to the vector store.
func (ix *Indexer) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return ix.store.Search(ctx, vec, limit)
}

func (ix *Indexer) collectFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(ix.projectDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, don't abort the walk
		}
		name := d.Name()
		if d.IsDir() {
			if path != ix.projectDir && (ix.opts.IgnoreDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if ix.opts.IgnoreFiles[name] {
			return nil
		}
		if !ix.opts.Extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if rel, relErr := filepath.Rel(ix.projectDir, path); relErr == nil && ix.matchesIgnorePattern(filepath.ToSlash(rel)) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func (ix *Indexer) matchesIgnorePattern(relPath string) bool {
	for _, pattern := range ix.opts.IgnorePatterns {
		if ix.matcher.Match(pattern, relPath) {
			return true
		}
	}
	return false
}

func chunkID(filePath string, startLine int) string {
	return filePath + "#" + itoa(startLine)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// chunkText splits text into line-aligned chunks targeting chunkSize
// characters with chunkOverlap characters carried into the next chunk.
func chunkText(filePath, language, text string, chunkSize, chunkOverlap int) []Chunk {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var chunks []Chunk
	start := 0
	for start < len(lines) {
		size := 0
		end := start
		for end < len(lines) && (size == 0 || size < chunkSize) {
			size += len(lines[end]) + 1
			end++
		}

		chunkLines := lines[start:end]
		chunks = append(chunks, Chunk{
			ID:        chunkID(filePath, start),
			FilePath:  filePath,
			Language:  language,
			StartLine: start,
			EndLine:   end - 1,
			Text:      strings.Join(chunkLines, "\n"),
		})

		if end >= len(lines) {
			break
		}

		// Walk back from end until chunkOverlap characters are covered,
		// so the next chunk's window repeats that trailing context.
		overlapSize := 0
		next := end
		for next > start && overlapSize < chunkOverlap {
			next--
			overlapSize += len(lines[next]) + 1
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// languageForExt maps a file extension to a coarse language tag for
// chunk metadata.
func languageForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cpp", ".hpp":
		return "cpp"
	case ".rb":
		return "ruby"
	case ".php":
		return "php"
	case ".cs":
		return "csharp"
	case ".swift":
		return "swift"
	case ".kt":
		return "kotlin"
	case ".scala":
		return "scala"
	case ".md":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "text"
	}
}
