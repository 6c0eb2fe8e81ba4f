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

// PutMessage upserts a message row.
func (d *DB) PutMessage(ctx context.Context, m *types.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return apperr.Wrap(apperr.Validation, err, "db: marshal message")
	}
	_, err = d.Exec(ctx, `
		INSERT INTO messages (id, session_id, role, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role       = excluded.role,
			data       = excluded.data,
			updated_at = excluded.updated_at
	`, m.ID, m.SessionID, m.Role, string(data), m.Time.Created, m.Time.Updated)
	if err != nil {
		return err
	}
	event.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Info: m}})
	return nil
}

// GetMessage returns a message by id, or ErrNotFound.
func (d *DB) GetMessage(ctx context.Context, id string) (*types.Message, error) {
	var data string
	err := d.conn.QueryRowContext(ctx, `SELECT data FROM messages WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: get message")
	}
	var m types.Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: unmarshal message")
	}
	return &m, nil
}

// ListMessages returns every message for a session in creation order.
func (d *DB) ListMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT data FROM messages WHERE session_id = ? ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: list messages")
	}
	defer rows.Close()

	var out []*types.Message
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: scan message")
		}
		var m types.Message
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: unmarshal message")
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// PutPart upserts a message-part row. seq preserves display order
// within a message since sqlite doesn't guarantee insertion order on
// SELECT without an ORDER BY.
func (d *DB) PutPart(ctx context.Context, sessionID, messageID string, seq int, part types.Part) error {
	data, err := json.Marshal(part)
	if err != nil {
		return apperr.Wrap(apperr.Validation, err, "db: marshal part")
	}
	_, err = d.Exec(ctx, `
		INSERT INTO message_parts (id, message_id, session_id, type, data, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, seq = excluded.seq
	`, part.PartID(), messageID, sessionID, part.PartType(), string(data), seq)
	return err
}

// ListParts returns every part of a message in seq order.
func (d *DB) ListParts(ctx context.Context, messageID string) ([]types.Part, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT data FROM message_parts WHERE message_id = ? ORDER BY seq ASC
	`, messageID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: list parts")
	}
	defer rows.Close()

	var out []types.Part
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: scan part")
		}
		part, err := types.UnmarshalPart([]byte(data))
		if err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: unmarshal part")
		}
		out = append(out, part)
	}
	return out, rows.Err()
}

// ToolCall is the M-component row promoting a ToolPart's call fields
// into their own table, addressable independent of the owning part.
type ToolCall struct {
	ID        string
	MessageID string
	SessionID string
	CallID    string
	ToolName  string
	Input     json.RawMessage
	State     string
	Output    *string
	Error     *string
	CreatedAt int64
	UpdatedAt *int64
}

// PutToolCall upserts a tool-call row.
func (d *DB) PutToolCall(ctx context.Context, tc *ToolCall) error {
	_, err := d.Exec(ctx, `
		INSERT INTO tool_calls (id, message_id, session_id, call_id, tool_name, input, state, output, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state      = excluded.state,
			output     = excluded.output,
			error      = excluded.error,
			updated_at = excluded.updated_at
	`, tc.ID, tc.MessageID, tc.SessionID, tc.CallID, tc.ToolName, string(tc.Input), tc.State, tc.Output, tc.Error, tc.CreatedAt, tc.UpdatedAt)
	return err
}

// ListToolCalls returns every tool call made within a message.
func (d *DB) ListToolCalls(ctx context.Context, messageID string) ([]*ToolCall, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, message_id, session_id, call_id, tool_name, input, state, output, error, created_at, updated_at
		FROM tool_calls WHERE message_id = ? ORDER BY created_at ASC
	`, messageID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: list tool calls")
	}
	defer rows.Close()

	var out []*ToolCall
	for rows.Next() {
		tc := &ToolCall{}
		var input string
		if err := rows.Scan(&tc.ID, &tc.MessageID, &tc.SessionID, &tc.CallID, &tc.ToolName, &input, &tc.State, &tc.Output, &tc.Error, &tc.CreatedAt, &tc.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, err, "db: scan tool call")
		}
		tc.Input = json.RawMessage(input)
		out = append(out, tc)
	}
	return out, rows.Err()
}
