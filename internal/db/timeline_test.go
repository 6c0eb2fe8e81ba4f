package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode-engine/pkg/types"
)

func TestTimeline_MergesMessagesPartsAndToolCallsInOrder(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.PutSession(ctx, &types.Session{ID: "s1", ProjectID: "p1", Directory: "/tmp"}))

	require.NoError(t, d.PutMessage(ctx, &types.Message{
		ID: "m1", SessionID: "s1", Role: "user",
		Time: types.MessageTime{Created: 100},
	}))
	require.NoError(t, d.PutMessage(ctx, &types.Message{
		ID: "m2", SessionID: "s1", Role: "assistant", ModelID: "gpt",
		Time: types.MessageTime{Created: 200},
	}))
	require.NoError(t, d.PutPart(ctx, "s1", "m2", 0, &types.ReasoningPart{
		ID: "r1", SessionID: "s1", MessageID: "m2", Type: "reasoning", Text: "thinking",
		Time: types.PartTime{Start: int64Ptr(210)},
	}))
	require.NoError(t, d.PutToolCall(ctx, &ToolCall{
		ID: "tc1", MessageID: "m2", SessionID: "s1", CallID: "call1",
		ToolName: "lookup", Input: []byte(`{}`), State: "completed",
		CreatedAt: 220, UpdatedAt: int64Ptr(230),
	}))

	events, err := d.Timeline(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, 5)

	require.Equal(t, "user", events[0].TimelineEventType())
	require.Equal(t, "assistant", events[1].TimelineEventType())
	require.Equal(t, "reasoning", events[2].TimelineEventType())
	require.Equal(t, "tool_call", events[3].TimelineEventType())
	require.Equal(t, "tool_result", events[4].TimelineEventType())

	for i := 1; i < len(events); i++ {
		require.LessOrEqual(t, events[i-1].TimelineEventTime(), events[i].TimelineEventTime())
	}
}

func int64Ptr(v int64) *int64 { return &v }
