package core

import (
	"context"
	"strings"

	"github.com/hupe1980/convosim/logging"
)

// Agent is the unit of conversational behavior driven by the orchestrator.
//
// Step consumes the conversation history so far and produces exactly one new
// turn. Implementations never mutate the record directly; the orchestrator is
// its sole owner. Step must respect ctx cancellation (model calls are the only
// blocking operations) and report unrecoverable failures as StepFailedError.
type Agent interface {
	Name() string
	Description() string
	Step(ctx context.Context, sc *StepContext) (Turn, error)
}

// StepContext is the read-only view of the run handed to an agent for one
// step. History is a snapshot; agents must not modify it. Sub-agents of a
// society share the same context since all fields are immutable reads.
type StepContext struct {
	RunID     string
	Iteration int
	History   []Turn
	Logger    logging.Logger
}

// NewStepContext builds a step context; a nil logger defaults to NoOp.
func NewStepContext(runID string, iteration int, history []Turn, logger logging.Logger) *StepContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &StepContext{
		RunID:     runID,
		Iteration: iteration,
		History:   history,
		Logger:    logger,
	}
}

// LastContent returns the content of the most recent non-sentinel turn, or ""
// for an empty history. RAG agents key retrieval lookups on it.
func (sc *StepContext) LastContent() string {
	for i := len(sc.History) - 1; i >= 0; i-- {
		if !sc.History[i].Failed {
			return sc.History[i].Content
		}
	}
	return ""
}

// Transcript renders the non-sentinel history as "speaker: content" lines,
// used for moderator and summary prompts.
func (sc *StepContext) Transcript() string {
	var b strings.Builder
	for _, t := range sc.History {
		if t.Failed {
			continue
		}
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
