package model

import (
	"context"
	"fmt"
	"sync"
)

// Handle identifies a backend by provider and model name. Immutable once
// constructed; shared read-only by all agents in a run.
type Handle struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// String returns "provider/name" for logging.
func (h Handle) String() string { return h.Provider + "/" + h.Name }

// Provider side message roles. Instructions travel separately in Request.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation-formatted input entry. Role is the provider
// side role ("user" or "assistant"); instructions travel separately.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	// Instructions is the system prompt conditioning the reply.
	Instructions string `json:"instructions"`
	// Messages is the conversation history mapped to provider roles.
	Messages []Message `json:"messages"`
	// Temperature overrides the adapter default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed model output for one generation call.
type Response struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Usage    *TokenUsage       `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Model is the uniform call interface over heterogeneous LLM backends.
// Generate blocks until the provider responds or ctx is done; failures are
// reported through the core error taxonomy (ProviderError, RateLimitedError,
// InvalidResponseError).
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests. Responses can
// be scripted (consumed in order), keyed by the last message content, or
// computed by a responder function; lookup happens in that order.
type MockModel struct {
	info Info

	mu        sync.Mutex
	script    []string
	scriptPos int
	responses map[string]string
	responder func(Request) string
	err       error
	calls     int
}

// NewMockModel constructs a MockModel identified by name and provider.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script queues responses consumed one per call, in order.
func (m *MockModel) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// SetResponder installs a function computing the response from the request.
func (m *MockModel) SetResponder(fn func(Request) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetError makes every subsequent Generate call fail with err. Pass nil to
// restore normal behavior.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many Generate calls were made.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	if m.scriptPos < len(m.script) {
		text := m.script[m.scriptPos]
		m.scriptPos++
		return &Response{Text: text}, nil
	}

	var lastMessage string
	if len(req.Messages) > 0 {
		lastMessage = req.Messages[len(req.Messages)-1].Content
	}

	if text, ok := m.responses[lastMessage]; ok {
		return &Response{Text: text}, nil
	}

	if m.responder != nil {
		return &Response{Text: m.responder(req)}, nil
	}

	return &Response{Text: fmt.Sprintf("Mock response to: %s", lastMessage)}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
