package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode-engine/pkg/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSession_PutGetList(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	s := &types.Session{ID: "s1", ProjectID: "p1", Directory: "/tmp/p1", Title: "hello"}
	require.NoError(t, d.PutSession(ctx, s))

	got, err := d.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "hello", got.Title)

	list, err := d.ListSessions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = d.GetSession(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRevert_SetsSessionRevertPointer(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.PutSession(ctx, &types.Session{ID: "s1", ProjectID: "p1", Directory: "/tmp"}))
	require.NoError(t, d.RecordRevert(ctx, "s1", "m1", nil, "deadbeef", "--- a\n+++ b\n"))

	got, err := d.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.Revert)
	require.Equal(t, "m1", got.Revert.MessageID)
	require.Equal(t, "deadbeef", *got.Revert.Snapshot)
	require.Equal(t, "--- a\n+++ b\n", *got.Revert.Diff)
}

func TestDeleteSession_CascadesEverything(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.PutSession(ctx, &types.Session{ID: "s1", ProjectID: "p1", Directory: "/tmp"}))
	require.NoError(t, d.PutMessage(ctx, &types.Message{ID: "m1", SessionID: "s1", Role: "user"}))
	require.NoError(t, d.PutPart(ctx, "s1", "m1", 0, &types.TextPart{ID: "pt1", SessionID: "s1", MessageID: "m1", Type: "text", Text: "hi"}))
	require.NoError(t, d.PutToolCall(ctx, &ToolCall{ID: "tc1", MessageID: "m1", SessionID: "s1", CallID: "call1", ToolName: "bash", Input: []byte(`{}`), State: "completed"}))
	require.NoError(t, d.PutTodos(ctx, "s1", []Todo{{ID: "t1", Content: "do it"}}))

	require.NoError(t, d.DeleteSession(ctx, "s1"))

	_, err := d.GetSession(ctx, "s1")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = d.GetMessage(ctx, "m1")
	require.ErrorIs(t, err, ErrNotFound)

	parts, err := d.ListParts(ctx, "m1")
	require.NoError(t, err)
	require.Empty(t, parts)

	calls, err := d.ListToolCalls(ctx, "m1")
	require.NoError(t, err)
	require.Empty(t, calls)

	todos, err := d.GetTodos(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, todos)
}

func TestMessage_PartsAndToolCalls(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.PutSession(ctx, &types.Session{ID: "s1", ProjectID: "p1", Directory: "/tmp"}))
	require.NoError(t, d.PutMessage(ctx, &types.Message{ID: "m1", SessionID: "s1", Role: "assistant"}))
	require.NoError(t, d.PutPart(ctx, "s1", "m1", 0, &types.TextPart{ID: "pt1", SessionID: "s1", MessageID: "m1", Type: "text", Text: "first"}))
	require.NoError(t, d.PutPart(ctx, "s1", "m1", 1, &types.TextPart{ID: "pt2", SessionID: "s1", MessageID: "m1", Type: "text", Text: "second"}))

	parts, err := d.ListParts(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, "first", parts[0].(*types.TextPart).Text)
	require.Equal(t, "second", parts[1].(*types.TextPart).Text)
}
