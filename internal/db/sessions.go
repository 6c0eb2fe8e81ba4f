package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/event"
	"github.com/opencode-ai/opencode-engine/pkg/types"
)

// ErrNotFound is returned by the single-row getters when no row matches.
var ErrNotFound = apperr.New(apperr.NotFound, "db: row not found")

// PutSession upserts a session row, keyed by id.
func (d *DB) PutSession(ctx context.Context, s *types.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return apperr.Wrap(apperr.Validation, err, "db: marshal session")
	}
	_, err = d.Exec(ctx, `
		INSERT INTO sessions (id, project_id, directory, parent_id, title, version, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			directory  = excluded.directory,
			parent_id  = excluded.parent_id,
			title      = excluded.title,
			version    = excluded.version,
			data       = excluded.data,
			updated_at = excluded.updated_at
	`, s.ID, s.ProjectID, s.Directory, s.ParentID, s.Title, s.Version, string(data), s.Time.Created, s.Time.Updated)
	if err != nil {
		return err
	}
	event.Publish(event.Event{Type: event.SessionSaved, Data: event.SessionSavedData{Info: s}})
	return nil
}

// GetSession returns a session by id, or ErrNotFound.
func (d *DB) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var data string
	err := d.conn.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: get session")
	}
	var s types.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: unmarshal session")
	}
	return &s, nil
}

// ListSessions returns every session for a project, most recently
// updated first.
func (d *DB) ListSessions(ctx context.Context, projectID string) ([]*types.Session, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT data FROM sessions WHERE project_id = ? ORDER BY updated_at DESC
	`, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: list sessions")
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: scan session")
		}
		var s types.Session
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: unmarshal session")
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// RecordRevert sets a session's revert pointer to a tracked snapshot
// and persists it, tying internal/snapshot's output into the session
// row rather than leaving SessionRevert a write-only struct field.
func (d *DB) RecordRevert(ctx context.Context, sessionID, messageID string, partID *string, snapshotHash, diffPatch string) error {
	s, err := d.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Revert = &types.SessionRevert{
		MessageID: messageID,
		PartID:    partID,
		Snapshot:  &snapshotHash,
		Diff:      &diffPatch,
	}
	return d.PutSession(ctx, s)
}

// DeleteSession removes a session and cascades to every message,
// message-part and tool-call row that references it. Sqlite foreign
// keys alone don't cascade without ON DELETE CASCADE declarations;
// the schema instead favors explicit ordering here so the
// relationship is visible at the call site.
func (d *DB) DeleteSession(ctx context.Context, id string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Persistence, err, "db: begin delete session")
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM tool_calls WHERE session_id = ?`,
		`DELETE FROM message_parts WHERE session_id = ?`,
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM todos WHERE session_id = ?`,
		`DELETE FROM pending_questions WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return apperr.Wrap(apperr.Persistence, err, "db: delete session cascade")
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Persistence, err, "db: commit delete session")
	}
	event.Publish(event.Event{Type: event.SessionDeleted, Data: event.SessionDeletedData{ID: id}})
	return nil
}
