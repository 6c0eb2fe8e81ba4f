// Package types provides the core data types backing the engine's
// persistence layer.
package types

// Session groups the messages, parts and tool calls recorded under a
// single project directory. There is no web/product sharing surface
// or custom-prompt loader here, so Session carries only what the
// engines themselves produce and consume: the revert pointer ties
// directly into internal/snapshot's tracked hashes and diffs.
type Session struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectID"`
	Directory string         `json:"directory"`
	ParentID  *string        `json:"parentID,omitempty"`
	Title     string         `json:"title"`
	Version   string         `json:"version"`
	Summary   SessionSummary `json:"summary"`
	Time      SessionTime    `json:"time"`
	Revert    *SessionRevert `json:"revert,omitempty"`
}

// SessionSummary contains statistics about code changes in a session.
type SessionSummary struct {
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Files     int        `json:"files"`
	Diffs     []FileDiff `json:"diffs,omitempty"`
}

// FileDiff represents a diff for a single file.
type FileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Before    string `json:"before,omitempty"`
	After     string `json:"after,omitempty"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created    int64  `json:"created"`
	Updated    int64  `json:"updated"`
	Compacting *int64 `json:"compacting,omitempty"`
}

// SessionRevert records that a session was rewound to an earlier
// point: Snapshot is the internal/snapshot.TrackResult.Hash of the
// tree at that point, and Diff is the internal/snapshot.DiffResult.Patch
// between that tree and the working tree at the moment of the revert.
type SessionRevert struct {
	MessageID string  `json:"messageID"`
	PartID    *string `json:"partID,omitempty"`
	Snapshot  *string `json:"snapshot,omitempty"`
	Diff      *string `json:"diff,omitempty"`
}
