package sink

import (
	"context"
	"sync"

	"github.com/hupe1980/convosim/core"
)

// MemorySink collects records in memory. Records are cloned on write and on
// read so callers and the sink never share mutable state. Useful for tests
// and as a fallback destination when a primary sink fails.
type MemorySink struct {
	mu      sync.RWMutex
	records []*core.ConversationRecord
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, record *core.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record.Clone())

	return nil
}

// Records returns clones of everything written so far, in write order.
func (s *MemorySink) Records() []*core.ConversationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.ConversationRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}

	return out
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
