package types

import "encoding/json"

// TimelineEvent is the read-side projection of a session's messages,
// parts and tool calls into a single time-ordered feed: the variant
// set a client walks to render a conversation without separately
// joining messages, message_parts and tool_calls itself.
type TimelineEvent interface {
	TimelineEventType() string
	TimelineEventTime() int64
}

// UserEvent marks a user message's place in the timeline.
type UserEvent struct {
	MessageID string `json:"messageID"`
	Time      int64  `json:"time"`
}

func (e *UserEvent) TimelineEventType() string { return "user" }
func (e *UserEvent) TimelineEventTime() int64  { return e.Time }

// AssistantEvent marks an assistant message's place in the timeline.
type AssistantEvent struct {
	MessageID  string `json:"messageID"`
	ModelID    string `json:"modelID,omitempty"`
	ProviderID string `json:"providerID,omitempty"`
	Time       int64  `json:"time"`
}

func (e *AssistantEvent) TimelineEventType() string { return "assistant" }
func (e *AssistantEvent) TimelineEventTime() int64  { return e.Time }

// ReasoningEvent surfaces a reasoning part's text on its own line in
// the timeline, distinct from the assistant message it belongs to.
type ReasoningEvent struct {
	MessageID string `json:"messageID"`
	PartID    string `json:"partID"`
	Text      string `json:"text"`
	Time      int64  `json:"time"`
}

func (e *ReasoningEvent) TimelineEventType() string { return "reasoning" }
func (e *ReasoningEvent) TimelineEventTime() int64  { return e.Time }

// ToolCallEvent marks the moment a tool call was issued.
type ToolCallEvent struct {
	MessageID string          `json:"messageID"`
	CallID    string          `json:"callID"`
	ToolName  string          `json:"toolName"`
	Input     json.RawMessage `json:"input,omitempty"`
	Time      int64           `json:"time"`
}

func (e *ToolCallEvent) TimelineEventType() string { return "tool_call" }
func (e *ToolCallEvent) TimelineEventTime() int64  { return e.Time }

// ToolResultEvent marks the moment a tool call settled, successfully
// or not.
type ToolResultEvent struct {
	MessageID string  `json:"messageID"`
	CallID    string  `json:"callID"`
	State     string  `json:"state"`
	Output    *string `json:"output,omitempty"`
	Error     *string `json:"error,omitempty"`
	Time      int64   `json:"time"`
}

func (e *ToolResultEvent) TimelineEventType() string { return "tool_result" }
func (e *ToolResultEvent) TimelineEventTime() int64  { return e.Time }

// StatusEvent marks a message-level status change that isn't itself
// content, such as an assistant message failing.
type StatusEvent struct {
	MessageID string `json:"messageID"`
	Status    string `json:"status"`
	Time      int64  `json:"time"`
}

func (e *StatusEvent) TimelineEventType() string { return "status" }
func (e *StatusEvent) TimelineEventTime() int64  { return e.Time }
