package sink

import (
	"context"

	"github.com/hupe1980/convosim/core"
)

// Sink persists finalized conversation records. Implementations must be safe
// for concurrent use; failures are reported as core.SinkError so callers can
// route the record to a fallback destination.
type Sink interface {
	Write(ctx context.Context, record *core.ConversationRecord) error
}
