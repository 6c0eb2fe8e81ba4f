// Package db is the embedded relational store backing sessions,
// messages, todos, pending questions and error memories. It wraps
// database/sql over the pure-Go modernc.org/sqlite driver so the
// engine never needs a C toolchain or a standalone database process.
package db
