// Package question implements the question broker: a pending-question
// table in internal/db paired with an in-memory table of one-shot
// resolvers. Ask publishes an event and blocks on a channel; Answer,
// Skip and Reject settle that channel from another goroutine (usually
// a UI), with skip and reject surfaced as distinct error types.
package question
