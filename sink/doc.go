// Package sink defines where finalized conversation records go: JSON files on
// disk grouped by scenario, an in-memory collector for tests and fallbacks,
// or a MongoDB collection for shared storage.
package sink
