package types

// Project is a workspace rooted at Worktree, the unit the LSP manager,
// indexer and snapshot layer all scope their state to.
type Project struct {
	ID       string      `json:"id"`
	Worktree string      `json:"worktree"`
	VCS      string      `json:"vcs,omitempty"` // "git" or empty
	Time     ProjectTime `json:"time"`
}

// ProjectTime contains project timestamps.
type ProjectTime struct {
	Created     int64  `json:"created"`
	Initialized *int64 `json:"initialized,omitempty"`
}
