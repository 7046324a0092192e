package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is a process-local Store scoring documents by case-insensitive
// token overlap with the query. Linear scan, suitable for tests and small
// knowledge bases; swap for a vector index for production retrieval.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs []Document
}

// NewInMemoryStore creates an empty in-memory store, optionally pre-seeded
// with the given document contents.
func NewInMemoryStore(contents ...string) *InMemoryStore {
	s := &InMemoryStore{}
	for _, c := range contents {
		s.Add(Document{Content: c})
	}
	return s
}

// Add appends a document. A missing ID is filled in.
func (s *InMemoryStore) Add(doc Document) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	s.docs = append(s.docs, doc)

	return doc.ID
}

// Len returns the number of stored documents.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search scores every document by the fraction of query tokens it contains
// and returns the best matches. Documents with no overlap are omitted.
func (s *InMemoryStore) Search(_ context.Context, query string, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return []Document{}, nil
	}

	results := make([]Document, 0, limit)

	for _, doc := range s.docs {
		score := overlap(tokens, strings.ToLower(doc.Content))
		if score == 0 {
			continue
		}

		hit := doc
		hit.Score = score

		results = append(results, hit)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) < 3 { // skip stop-word sized tokens
			continue
		}
		tokens = append(tokens, f)
	}

	return tokens
}

func overlap(tokens []string, content string) float64 {
	matched := 0
	for _, t := range tokens {
		if strings.Contains(content, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}
