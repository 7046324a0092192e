package core

import (
	"errors"
	"sync"
	"time"
)

// RunStatus tracks the orchestrator state machine:
// Initialized -> Running -> {Completed, Aborted}.
type RunStatus string

const (
	// StatusInitialized means the record exists but the loop has not started.
	StatusInitialized RunStatus = "initialized"
	// StatusRunning means the iteration loop is in progress.
	StatusRunning RunStatus = "running"
	// StatusCompleted means the run finished normally (iteration bound reached
	// or an agent requested termination). Terminal.
	StatusCompleted RunStatus = "completed"
	// StatusAborted means a non-recoverable error or cancellation ended the
	// run early. The partial record is still emitted. Terminal.
	StatusAborted RunStatus = "aborted"
)

// PersonaSettings snapshots the sampled persona components conditioning one
// side of the conversation.
type PersonaSettings struct {
	Characteristic string `json:"characteristic" bson:"characteristic"`
	Style          string `json:"style" bson:"style"`
	Emotion        string `json:"emotion" bson:"emotion"`
	Experience     string `json:"experience" bson:"experience"`
	Goal           string `json:"goal" bson:"goal"`
}

// InputSettings snapshots the sampled scenario data a run was conditioned on.
// Downstream collaborators filter and group records on these fields (notably
// MediaType) without re-deriving them from transcripts.
type InputSettings struct {
	Bank             string          `json:"selected_bank" bson:"selected_bank"`
	CustomerName     string          `json:"selected_customer_name" bson:"selected_customer_name"`
	ServiceAgentName string          `json:"selected_service_agent_name" bson:"selected_service_agent_name"`
	Task             string          `json:"selected_task" bson:"selected_task"`
	MediaType        string          `json:"selected_media_type" bson:"selected_media_type"`
	MediaDescription string          `json:"selected_media_description" bson:"selected_media_description"`
	ServiceAgent     PersonaSettings `json:"service_agent" bson:"service_agent"`
	CustomerAgent    PersonaSettings `json:"customer_agent" bson:"customer_agent"`
}

// ErrRecordFinalized is returned when appending to a finalized record.
var ErrRecordFinalized = errors.New("conversation record is finalized")

// ConversationRecord is the full, ordered, metadata-tagged transcript of one
// run. The orchestrator owns it exclusively while running; after Finalize it
// is immutable and safe to hand to sinks. The number of non-sentinel turns
// never exceeds Iterations.
type ConversationRecord struct {
	CallID        string        `json:"call_id" bson:"call_id"`
	RunID         string        `json:"run_id" bson:"run_id"`
	ModelName     string        `json:"model_name" bson:"model_name"`
	ModelProvider string        `json:"model_provider" bson:"model_provider"`
	AgentType     string        `json:"agent_type" bson:"agent_type"`
	Scenario      string        `json:"scenario" bson:"scenario"`
	Iterations    int           `json:"iterations" bson:"iterations"`
	Status        RunStatus     `json:"status" bson:"status"`
	AbortReason   string        `json:"abort_reason,omitempty" bson:"abort_reason,omitempty"`
	InputSettings InputSettings `json:"input_settings" bson:"input_settings"`
	Turns         []Turn        `json:"messages" bson:"messages"`
	Summary       string        `json:"summary,omitempty" bson:"summary,omitempty"`
	Started       time.Time     `json:"started" bson:"started"`
	Finished      time.Time     `json:"finished,omitempty" bson:"finished,omitempty"`

	mu        sync.RWMutex
	finalized bool
}

// NewConversationRecord creates an empty record in StatusInitialized carrying
// the run metadata downstream consumers need for filtering and grouping.
func NewConversationRecord(runID, modelName, modelProvider, agentType, scenarioName string, iterations int, settings InputSettings) *ConversationRecord {
	return &ConversationRecord{
		CallID:        NewID(),
		RunID:         runID,
		ModelName:     modelName,
		ModelProvider: modelProvider,
		AgentType:     agentType,
		Scenario:      scenarioName,
		Iterations:    iterations,
		Status:        StatusInitialized,
		InputSettings: settings,
		Turns:         []Turn{},
		Started:       time.Now().UTC(),
	}
}

// Begin transitions the record to StatusRunning.
func (r *ConversationRecord) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusRunning
}

// AppendTurn adds a turn to the transcript. It fails once the record has been
// finalized; turns are append-only.
func (r *ConversationRecord) AppendTurn(t Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrRecordFinalized
	}

	r.Turns = append(r.Turns, t)

	return nil
}

// History returns a defensive copy of the transcript so far, suitable for
// handing to agents as an immutable snapshot.
func (r *ConversationRecord) History() []Turn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := make([]Turn, len(r.Turns))
	copy(history, r.Turns)

	return history
}

// TurnCount returns the number of non-sentinel turns recorded so far.
func (r *ConversationRecord) TurnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, t := range r.Turns {
		if !t.Failed {
			n++
		}
	}

	return n
}

// SetSummary attaches a post-hoc conversation summary. No-op after Finalize.
func (r *ConversationRecord) SetSummary(summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.Summary = summary
}

// Finalize seals the record with a terminal status. Aborted records carry an
// explicit reason so partial transcripts are never silently dropped.
func (r *ConversationRecord) Finalize(status RunStatus, abortReason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.Status = status
	r.AbortReason = abortReason
	r.Finished = time.Now().UTC()
	r.finalized = true
}

// Finalized reports whether the record has reached a terminal status.
func (r *ConversationRecord) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}

// Clone returns a deep copy safe for independent use (sinks keep clones so
// stored records cannot be mutated through retained pointers).
func (r *ConversationRecord) Clone() *ConversationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := &ConversationRecord{
		CallID:        r.CallID,
		RunID:         r.RunID,
		ModelName:     r.ModelName,
		ModelProvider: r.ModelProvider,
		AgentType:     r.AgentType,
		Scenario:      r.Scenario,
		Iterations:    r.Iterations,
		Status:        r.Status,
		AbortReason:   r.AbortReason,
		InputSettings: r.InputSettings,
		Turns:         make([]Turn, len(r.Turns)),
		Summary:       r.Summary,
		Started:       r.Started,
		Finished:      r.Finished,
		finalized:     r.finalized,
	}
	copy(clone.Turns, r.Turns)

	return clone
}
