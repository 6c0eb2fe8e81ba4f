// Package index implements the semantic code-index pipeline: an
// embedding client, a vector-store client, and the indexer that walks
// a project tree, chunks source with overlap, and ties the two
// together for upsert and search.
package index
