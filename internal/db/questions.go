package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

// PendingQuestion is a single ask() call's persisted state. Answers and
// Error are nil until the row leaves "pending".
type PendingQuestion struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Tool      string          `json:"tool,omitempty"`
	Questions json.RawMessage `json:"questions"`
	Answers   json.RawMessage `json:"answers,omitempty"`
	Status    string          `json:"status"` // "pending" | "answered" | "skipped" | "rejected"
	Error     string          `json:"error,omitempty"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

// InsertPendingQuestion creates a row in state "pending".
func (d *DB) InsertPendingQuestion(ctx context.Context, q *PendingQuestion) error {
	_, err := d.Exec(ctx, `
		INSERT INTO pending_questions (id, session_id, tool, questions, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?)
	`, q.ID, q.SessionID, q.Tool, string(q.Questions), q.CreatedAt, q.UpdatedAt)
	return err
}

// ResolvePendingQuestion transitions a row out of "pending", recording
// either the answers payload (status "answered") or an error string
// (status "skipped"/"rejected").
func (d *DB) ResolvePendingQuestion(ctx context.Context, id, status string, answers json.RawMessage, errMsg string, updatedAt int64) error {
	_, err := d.Exec(ctx, `
		UPDATE pending_questions SET status = ?, answers = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, status, nullableRaw(answers), nullableString(errMsg), updatedAt, id)
	return err
}

// GetPendingQuestion returns a single row by id, or ErrNotFound.
func (d *DB) GetPendingQuestion(ctx context.Context, id string) (*PendingQuestion, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, session_id, tool, questions, answers, status, error, created_at, updated_at
		FROM pending_questions WHERE id = ?
	`, id)
	q, err := scanPendingQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// ListPendingQuestions returns every "pending" row for a session,
// oldest first.
func (d *DB) ListPendingQuestions(ctx context.Context, sessionID string) ([]*PendingQuestion, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, session_id, tool, questions, answers, status, error, created_at, updated_at
		FROM pending_questions WHERE session_id = ? AND status = 'pending' ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: list pending questions")
	}
	defer rows.Close()

	var out []*PendingQuestion
	for rows.Next() {
		q, err := scanPendingQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingQuestion(row rowScanner) (*PendingQuestion, error) {
	q := &PendingQuestion{}
	var tool, answers, errMsg sql.NullString
	var questions string
	if err := row.Scan(&q.ID, &q.SessionID, &tool, &questions, &answers, &q.Status, &errMsg, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Persistence, err, "db: scan pending question")
	}
	q.Tool = tool.String
	q.Questions = json.RawMessage(questions)
	if answers.Valid {
		q.Answers = json.RawMessage(answers.String)
	}
	q.Error = errMsg.String
	return q, nil
}

func nullableRaw(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
