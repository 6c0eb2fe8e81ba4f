package memory

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/db"
)

// Entry is a single lesson learned from a prior tool failure. Scope is
// nil for a global (cross-project) entry. RawError keeps the verbatim
// failure text the pattern was distilled from, ToolName the tool that
// produced it.
type Entry struct {
	ID              string
	Scope           *string
	ToolName        string
	ErrorHash       string
	ErrorPattern    string
	Lesson          string
	RawError        string
	Tags            []string
	Confidence      float64
	OccurrenceCount int
	LastOccurredAt  int64
	CreatedAt       int64
}

// Store implements the error-memory component on top of internal/db.
type Store struct {
	db *db.DB
}

// NewStore wraps store for error-memory access.
func NewStore(store *db.DB) *Store {
	return &Store{db: store}
}

// Save upserts an entry keyed by id.
func (s *Store) Save(ctx context.Context, e *Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO error_memories (id, scope, tool_name, error_hash, error_pattern, lesson, raw_error, tags, confidence, occurrence_count, last_occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scope            = excluded.scope,
			tool_name        = excluded.tool_name,
			error_hash       = excluded.error_hash,
			error_pattern    = excluded.error_pattern,
			lesson           = excluded.lesson,
			raw_error        = excluded.raw_error,
			tags             = excluded.tags,
			confidence       = excluded.confidence,
			occurrence_count = excluded.occurrence_count,
			last_occurred_at = excluded.last_occurred_at
	`, e.ID, e.Scope, e.ToolName, e.ErrorHash, e.ErrorPattern, e.Lesson, e.RawError, strings.Join(e.Tags, ","),
		e.Confidence, e.OccurrenceCount, e.LastOccurredAt, e.CreatedAt)
	return err
}

// GetByHash looks up an entry by its error hash. When scope is
// non-nil, project-specific entries (scope = ?) are tried first,
// falling back to a global entry (scope IS NULL); when scope is nil,
// only global entries are consulted.
func (s *Store) GetByHash(ctx context.Context, hash string, scope *string) (*Entry, error) {
	if scope != nil {
		e, err := s.queryByHash(ctx, hash, `scope = ?`, *scope)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}
	return s.queryByHash(ctx, hash, `scope IS NULL`)
}

func (s *Store) queryByHash(ctx context.Context, hash, scopeClause string, args ...any) (*Entry, error) {
	query := `
		SELECT id, scope, tool_name, error_hash, error_pattern, lesson, raw_error, tags, confidence, occurrence_count, last_occurred_at, created_at
		FROM error_memories WHERE error_hash = ? AND ` + scopeClause + ` LIMIT 1`
	row := s.db.Conn().QueryRowContext(ctx, query, append([]any{hash}, args...)...)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	return e, err
}

// List returns entries visible to scope (project-specific or global),
// ranked by the decay-weighted score:
//
//	score = confidence * (1 + log2(occurrenceCount + 1)) * 1 / (1 + ageDays/7)
//
// with ageDays = (now - lastOccurredAt) / 86_400_000.
func (s *Store) List(ctx context.Context, scope *string, limit int, nowMs int64) ([]*Entry, error) {
	entries, err := s.queryScoped(ctx, scope, "", nil)
	if err != nil {
		return nil, err
	}

	type scored struct {
		e     *Entry
		score float64
	}
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		ageDays := float64(nowMs-e.LastOccurredAt) / 86_400_000
		score := e.Confidence * (1 + math.Log2(float64(e.OccurrenceCount)+1)) / (1 + ageDays/7)
		ranked = append(ranked, scored{e: e, score: score})
	}
	for i := 1; i < len(ranked); i++ {
		j := i
		for j > 0 && ranked[j-1].score < ranked[j].score {
			ranked[j-1], ranked[j] = ranked[j], ranked[j-1]
			j--
		}
	}

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]*Entry, len(ranked))
	for i, r := range ranked {
		out[i] = r.e
	}
	return out, nil
}

// FindSimilar falls back to a fuzzy match over every pattern visible to
// scope when no entry's error hash matches exactly: two failures with
// slightly different file paths or line numbers hash differently but
// are the same lesson. minSimilarity is the normalized Levenshtein
// similarity threshold (1.0 - distance/maxLen) an entry must clear to
// be considered a match; the best-scoring entry above the threshold
// wins.
func (s *Store) FindSimilar(ctx context.Context, pattern string, scope *string, minSimilarity float64) (*Entry, error) {
	entries, err := s.queryScoped(ctx, scope, "", nil)
	if err != nil {
		return nil, err
	}

	var best *Entry
	bestSimilarity := minSimilarity
	for _, e := range entries {
		sim := patternSimilarity(pattern, e.ErrorPattern)
		if sim >= bestSimilarity {
			bestSimilarity = sim
			best = e
		}
	}
	if best == nil {
		return nil, db.ErrNotFound
	}
	return best, nil
}

// patternSimilarity is normalized Levenshtein similarity, capped to a
// length-ratio approximation for very long patterns to avoid quadratic
// cost on pathological inputs.
func patternSimilarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen > 10000 {
		minLen := len(a)
		if len(b) < minLen {
			minLen = len(b)
		}
		return float64(minLen) / float64(maxLen)
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// Search filters by a LIKE match on lesson, error pattern or tags,
// ordered by (confidence DESC, occurrence_count DESC).
func (s *Store) Search(ctx context.Context, query string, scope *string, limit int) ([]*Entry, error) {
	like := "%" + query + "%"
	extra := `AND (lesson LIKE ? OR error_pattern LIKE ? OR tags LIKE ?) ORDER BY confidence DESC, occurrence_count DESC`
	entries, err := s.queryScoped(ctx, scope, extra, []any{like, like, like})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) queryScoped(ctx context.Context, scope *string, extra string, extraArgs []any) ([]*Entry, error) {
	var scopeClause string
	var args []any
	if scope != nil {
		scopeClause = `(scope = ? OR scope IS NULL)`
		args = append(args, *scope)
	} else {
		scopeClause = `scope IS NULL`
	}

	query := `
		SELECT id, scope, tool_name, error_hash, error_pattern, lesson, raw_error, tags, confidence, occurrence_count, last_occurred_at, created_at
		FROM error_memories WHERE ` + scopeClause + " " + extra
	args = append(args, extraArgs...)

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "memory: query")
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneOptions configures Prune's thresholds.
type PruneOptions struct {
	MaxAgeDays    float64 // default 90
	MinConfidence float64 // default 0.2
}

// Prune deletes low-confidence rows and stale low-occurrence rows,
// returning the total number of rows removed.
func (s *Store) Prune(ctx context.Context, opts PruneOptions, nowMs int64) (int, error) {
	if opts.MaxAgeDays == 0 {
		opts.MaxAgeDays = 90
	}
	if opts.MinConfidence == 0 {
		opts.MinConfidence = 0.2
	}
	cutoff := nowMs - int64(opts.MaxAgeDays*86_400_000)

	total := 0
	res, err := s.db.Exec(ctx, `DELETE FROM error_memories WHERE confidence < ?`, opts.MinConfidence)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	total += int(n)

	res, err = s.db.Exec(ctx, `DELETE FROM error_memories WHERE last_occurred_at < ? AND occurrence_count < 3`, cutoff)
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	total += int(n)

	return total, nil
}

// ApplyDecay exponentially decays confidence toward zero with the
// given half-life, updating only rows whose confidence changes by
// more than 0.001, and returns the number of rows updated.
func (s *Store) ApplyDecay(ctx context.Context, halfLifeDays float64, nowMs int64) (int, error) {
	if halfLifeDays == 0 {
		halfLifeDays = 30
	}
	lambda := 1 / (halfLifeDays * 1.44 * 86_400_000)

	rows, err := s.db.Conn().QueryContext(ctx, `SELECT id, confidence, last_occurred_at FROM error_memories`)
	if err != nil {
		return 0, apperr.Wrap(apperr.Persistence, err, "memory: scan for decay")
	}
	type row struct {
		id         string
		confidence float64
		lastSeen   int64
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.confidence, &r.lastSeen); err != nil {
			rows.Close()
			return 0, apperr.Wrap(apperr.Persistence, err, "memory: scan row")
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, r := range all {
		ageMs := float64(nowMs - r.lastSeen)
		newConfidence := math.Max(0, r.confidence*math.Exp(-lambda*ageMs))
		if math.Abs(newConfidence-r.confidence) <= 0.001 {
			continue
		}
		if _, err := s.db.Exec(ctx, `UPDATE error_memories SET confidence = ? WHERE id = ?`, newConfidence, r.id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	e := &Entry{}
	var scope sql.NullString
	var tags string
	if err := row.Scan(&e.ID, &scope, &e.ToolName, &e.ErrorHash, &e.ErrorPattern, &e.Lesson, &e.RawError, &tags,
		&e.Confidence, &e.OccurrenceCount, &e.LastOccurredAt, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Persistence, err, "memory: scan entry")
	}
	if scope.Valid {
		e.Scope = &scope.String
	}
	if tags != "" {
		e.Tags = strings.Split(tags, ",")
	}
	return e, nil
}
