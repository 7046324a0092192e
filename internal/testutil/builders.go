// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing turns and conversation records. They are not
// intended for production usage.
package testutil

import (
	"github.com/hupe1980/convosim/core"
)

// TurnBuilder provides a fluent helper for constructing turns in tests.
// Example:
//
//	turn := NewTurnBuilder().Speaker("service").Content("hello").Iteration(2).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TurnBuilder struct {
	runID     string
	speaker   string
	role      string
	content   string
	iteration int
	failed    bool
	metadata  *core.TurnMetadata
}

// NewTurnBuilder creates a builder with a service-side speaker by default.
func NewTurnBuilder() *TurnBuilder {
	return &TurnBuilder{
		runID:   "run-test",
		speaker: "service",
		role:    core.RoleServiceAgent,
		content: "test content",
	}
}

// RunID sets the run ID (chainable).
func (b *TurnBuilder) RunID(id string) *TurnBuilder { b.runID = id; return b }

// Speaker sets the speaker name (chainable).
func (b *TurnBuilder) Speaker(s string) *TurnBuilder { b.speaker = s; return b }

// Customer marks the turn as customer-side (chainable).
func (b *TurnBuilder) Customer() *TurnBuilder { b.role = core.RoleCustomer; return b }

// Content sets the turn content (chainable).
func (b *TurnBuilder) Content(c string) *TurnBuilder { b.content = c; return b }

// Iteration sets the iteration index (chainable).
func (b *TurnBuilder) Iteration(i int) *TurnBuilder { b.iteration = i; return b }

// Failed marks the turn as a failure sentinel (chainable).
func (b *TurnBuilder) Failed() *TurnBuilder { b.failed = true; return b }

// Metadata attaches turn metadata (chainable).
func (b *TurnBuilder) Metadata(m *core.TurnMetadata) *TurnBuilder { b.metadata = m; return b }

// Build constructs the turn.
func (b *TurnBuilder) Build() core.Turn {
	turn := core.NewTurn(b.runID, b.speaker, b.role, b.content, b.iteration)
	turn.Failed = b.failed
	turn.Metadata = b.metadata
	return turn
}

// RecordBuilder provides a fluent helper for constructing conversation
// records in tests.
type RecordBuilder struct {
	runID      string
	modelName  string
	provider   string
	agentType  string
	scenario   string
	iterations int
	settings   core.InputSettings
	turns      []core.Turn
}

// NewRecordBuilder creates a builder with mock run metadata.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{
		runID:      "run-test",
		modelName:  "mock-model",
		provider:   "mock",
		agentType:  "simple",
		scenario:   "default",
		iterations: 10,
	}
}

// Scenario sets the scenario name (chainable).
func (b *RecordBuilder) Scenario(s string) *RecordBuilder { b.scenario = s; return b }

// AgentType sets the agent architecture name (chainable).
func (b *RecordBuilder) AgentType(t string) *RecordBuilder { b.agentType = t; return b }

// Iterations sets the iteration budget (chainable).
func (b *RecordBuilder) Iterations(n int) *RecordBuilder { b.iterations = n; return b }

// Settings sets the sampled input settings (chainable).
func (b *RecordBuilder) Settings(s core.InputSettings) *RecordBuilder { b.settings = s; return b }

// MediaType sets only the sampled communication channel (chainable).
func (b *RecordBuilder) MediaType(mt string) *RecordBuilder {
	b.settings.MediaType = mt
	return b
}

// Turn appends a finished turn to the record (chainable).
func (b *RecordBuilder) Turn(t core.Turn) *RecordBuilder { b.turns = append(b.turns, t); return b }

// Exchange appends a customer/service message pair (chainable).
func (b *RecordBuilder) Exchange(customer, service string) *RecordBuilder {
	i := len(b.turns)
	b.turns = append(b.turns,
		NewTurnBuilder().RunID(b.runID).Speaker("customer").Customer().Content(customer).Iteration(i).Build(),
		NewTurnBuilder().RunID(b.runID).Content(service).Iteration(i+1).Build(),
	)
	return b
}

// Build constructs the record in running state with all turns appended.
func (b *RecordBuilder) Build() *core.ConversationRecord {
	record := core.NewConversationRecord(b.runID, b.modelName, b.provider, b.agentType, b.scenario, b.iterations, b.settings)
	record.Begin()

	for _, t := range b.turns {
		_ = record.AppendTurn(t)
	}

	return record
}
