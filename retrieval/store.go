package retrieval

import "context"

// Document is a knowledge base entry returned by a Store search.
type Document struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]string
}

// Store is a searchable knowledge base backing retrieval-augmented agents.
// Implementations must be safe for concurrent use.
type Store interface {
	// Search returns up to limit documents relevant to the query, best
	// match first.
	Search(ctx context.Context, query string, limit int) ([]Document, error)
}
