package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation roles used on turns. Speakers carry agent names; roles
// categorize the side of the conversation for downstream consumers.
const (
	RoleCustomer     = "customer"
	RoleServiceAgent = "service_agent"
)

// TerminateToken is the sentinel an agent appends to its reply to signal that
// the conversation reached a natural conclusion. It is stripped from recorded
// content after detection.
const TerminateToken = "TERMINATE"

var terminateRe = regexp.MustCompile(`\bTERMINATE\b`)

// TurnMetadata carries optional per-turn attribution used by downstream
// filtering and auditing. All fields are omitted when empty.
type TurnMetadata struct {
	// RetrievedSnippets lists the document ids a RAG agent folded into its
	// prompt, enabling reproducibility and post-hoc auditing.
	RetrievedSnippets []string `json:"retrieved_snippets,omitempty" bson:"retrieved_snippets,omitempty"`
	// SubAgent names the sub-agent (or "moderator") a society turn is
	// attributed to.
	SubAgent string `json:"sub_agent,omitempty" bson:"sub_agent,omitempty"`
	// Proposers lists the sub-agents whose proposals contributed to a
	// society turn, in registration order.
	Proposers []string `json:"proposers,omitempty" bson:"proposers,omitempty"`
	// FailureReason describes why a sentinel failed turn was recorded.
	FailureReason string `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
}

// Turn is one atomic conversational contribution within a run. After being
// appended to a record it is treated as immutable.
type Turn struct {
	ID        string        `json:"id" bson:"id"`
	RunID     string        `json:"run_id" bson:"run_id"`
	Speaker   string        `json:"speaker" bson:"speaker"`
	Role      string        `json:"role" bson:"role"`
	Content   string        `json:"content" bson:"content"`
	Iteration int           `json:"iteration" bson:"iteration"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Failed    bool          `json:"failed,omitempty" bson:"failed,omitempty"`
	Metadata  *TurnMetadata `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// NewTurn creates a successful turn authored by speaker at the given iteration.
func NewTurn(runID, speaker, role, content string, iteration int) Turn {
	return Turn{
		ID:        NewID(),
		RunID:     runID,
		Speaker:   speaker,
		Role:      role,
		Content:   content,
		Iteration: iteration,
		Timestamp: time.Now().UTC(),
	}
}

// NewFailedTurn creates the sentinel entry recorded when an iteration's step
// failed after retries were exhausted. The cause is preserved in metadata so
// partial records stay auditable.
func NewFailedTurn(runID, speaker string, iteration int, cause error) Turn {
	t := NewTurn(runID, speaker, "", "", iteration)
	t.Failed = true
	if cause != nil {
		t.Metadata = &TurnMetadata{FailureReason: cause.Error()}
	}
	return t
}

// NewID generates a unique identifier for turns and records.
func NewID() string { return uuid.NewString() }

// RequestsTermination reports whether the turn's content ends with the
// literal termination token, signalling the conversation reached its
// conclusion. Detection and StripTermination match the same exact token.
func (t Turn) RequestsTermination() bool {
	return strings.HasSuffix(strings.TrimSpace(t.Content), TerminateToken)
}

// StripTermination returns a copy of the turn with any standalone termination
// token removed from its content. Recorded transcripts never carry the token.
func (t Turn) StripTermination() Turn {
	t.Content = strings.TrimSpace(terminateRe.ReplaceAllString(t.Content, ""))
	return t
}
