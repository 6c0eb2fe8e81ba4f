package event

import "github.com/opencode-ai/opencode-engine/pkg/types"

// SessionSavedData is the data for session.saved events, published on
// every insert or update of a session row.
type SessionSavedData struct {
	Info *types.Session `json:"info"`
}

// SessionDeletedData is the data for session.deleted events. Only the
// id survives the cascade, so that's all the payload carries.
type SessionDeletedData struct {
	ID string `json:"id"`
}

// MessageCreatedData is the data for message.created events.
type MessageCreatedData struct {
	Info *types.Message `json:"info"`
}

// FileChangedData is the data for file.changed events, published by
// the project watcher for every observed write/create/remove/rename.
type FileChangedData struct {
	Path string `json:"path"`
}

// QuestionAskedData is the data for question.asked events: a caller is
// now blocked waiting for this question to be settled.
type QuestionAskedData struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	Tool      string `json:"tool,omitempty"`
}

// QuestionResolvedData is the data for question.resolved events.
// Status is "answered", "skipped" or "rejected".
type QuestionResolvedData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
