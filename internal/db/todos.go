package db

import (
	"context"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

// Todo is a single session-scoped task-list entry.
type Todo struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`   // "pending" | "in_progress" | "completed"
	Priority string `json:"priority"` // "low" | "medium" | "high"
}

// PutTodos replaces the full todo list for a session. Writers always
// send the whole list at once, so replace semantics are simpler and
// safer than patching individual rows.
func (d *DB) PutTodos(ctx context.Context, sessionID string, todos []Todo) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Persistence, err, "db: begin put todos")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE session_id = ?`, sessionID); err != nil {
		return apperr.Wrap(apperr.Persistence, err, "db: clear todos")
	}
	for i, t := range todos {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO todos (id, session_id, content, status, priority, seq)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, sessionID, t.Content, t.Status, t.Priority, i); err != nil {
			return apperr.Wrap(apperr.Persistence, err, "db: insert todo")
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Persistence, err, "db: commit put todos")
	}
	return nil
}

// GetTodos returns a session's todo list in display order.
func (d *DB) GetTodos(ctx context.Context, sessionID string) ([]Todo, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, content, status, priority FROM todos WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: get todos")
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Content, &t.Status, &t.Priority); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: scan todo")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
