// Package memory implements the error-memory store: a decay-weighted,
// scope-aware ledger of lessons learned from prior tool failures,
// persisted through internal/db.
package memory
