// Package retrieval provides the knowledge base abstraction backing
// retrieval-augmented agents: a Store interface plus an in-memory
// implementation for tests and a SQLite-backed one for shared, persistent
// knowledge bases.
package retrieval
