package db

import (
	"context"
	"sort"

	"github.com/opencode-ai/opencode-engine/pkg/types"
)

// Timeline merges a session's messages, message parts and tool calls
// into a single feed of types.TimelineEvent ordered by time, so a
// caller doesn't have to join the three tables itself to render a
// conversation.
func (d *DB) Timeline(ctx context.Context, sessionID string) ([]types.TimelineEvent, error) {
	messages, err := d.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var events []types.TimelineEvent
	for _, m := range messages {
		switch m.Role {
		case "user":
			events = append(events, &types.UserEvent{MessageID: m.ID, Time: m.Time.Created})
		case "assistant":
			events = append(events, &types.AssistantEvent{
				MessageID:  m.ID,
				ModelID:    m.ModelID,
				ProviderID: m.ProviderID,
				Time:       m.Time.Created,
			})
			if m.Error != nil {
				events = append(events, &types.StatusEvent{
					MessageID: m.ID,
					Status:    m.Error.Type,
					Time:      m.Time.Created,
				})
			}
		}

		parts, err := d.ListParts(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			rp, ok := p.(*types.ReasoningPart)
			if !ok {
				continue
			}
			events = append(events, &types.ReasoningEvent{
				MessageID: m.ID,
				PartID:    rp.ID,
				Text:      rp.Text,
				Time:      partStart(rp.Time, m.Time.Created),
			})
		}

		calls, err := d.ListToolCalls(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range calls {
			events = append(events, &types.ToolCallEvent{
				MessageID: c.MessageID,
				CallID:    c.CallID,
				ToolName:  c.ToolName,
				Input:     c.Input,
				Time:      c.CreatedAt,
			})
			if c.State == "completed" || c.State == "error" {
				events = append(events, &types.ToolResultEvent{
					MessageID: c.MessageID,
					CallID:    c.CallID,
					State:     c.State,
					Output:    c.Output,
					Error:     c.Error,
					Time:      toolResultTime(c),
				})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimelineEventTime() < events[j].TimelineEventTime()
	})
	return events, nil
}

func partStart(t types.PartTime, fallback int64) int64 {
	if t.Start != nil {
		return *t.Start
	}
	return fallback
}

func toolResultTime(c *ToolCall) int64 {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}
