// Package diffengine parses and applies multi-file unified diffs, and
// synthesizes minimal unified diffs between two text blobs.
//
// Parsing and application (ParsePatch, Apply) trust the patch: there is no
// three-way merge, and a file that fails to write leaves earlier files
// in the same patch un-rolled-back. Callers that need atomicity across
// a multi-file patch pair Apply with the snapshot package.
//
// Synthesis (Synthesize) produces the inverse: given an old and new
// text blob it walks both with a bounded lookahead to recover moves
// and replacements, then coalesces adjacent changes into hunks with
// surrounding context, matching the same wire format ParsePatch consumes.
package diffengine
