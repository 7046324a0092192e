package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
	"github.com/hupe1980/convosim/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStepContext(history ...core.Turn) *core.StepContext {
	return core.NewStepContext("run-test", len(history), history, nil)
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")

	assert.True(t, inst.IsStatic())

	got, err := inst.Resolve(newStepContext())
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_FromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(sc *core.StepContext) (string, error) {
		return "dynamic for " + sc.RunID, nil
	})

	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(newStepContext())
	require.NoError(t, err)
	assert.Equal(t, "dynamic for run-test", got)
}

func TestSimpleAgent_Step(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")
	llm.AddResponse("Hallo", "Guten Tag, wie kann ich helfen?")

	a := NewSimpleAgent("Aria", llm, func(o *SimpleAgentOptions) {
		o.Instruction = NewInstructionFromText("Du bist Aria.")
	})

	history := []core.Turn{core.NewTurn("run-test", "Anna", core.RoleCustomer, "Hallo", 0)}

	turn, err := a.Step(context.Background(), newStepContext(history...))

	require.NoError(t, err)
	assert.Equal(t, "Aria", turn.Speaker)
	assert.Equal(t, core.RoleServiceAgent, turn.Role)
	assert.Equal(t, "Guten Tag, wie kann ich helfen?", turn.Content)
	assert.Equal(t, 1, turn.Iteration)
}

func TestSimpleAgent_HistoryMapping(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	var seen model.Request
	llm.SetResponder(func(req model.Request) string {
		seen = req
		return "ok"
	})

	a := NewSimpleAgent("Aria", llm)

	history := []core.Turn{
		core.NewTurn("run-test", "Anna", core.RoleCustomer, "Frage", 0),
		core.NewTurn("run-test", "Aria", core.RoleServiceAgent, "Antwort", 1),
		core.NewFailedTurn("run-test", "Anna", 2, assert.AnError),
		core.NewTurn("run-test", "Anna", core.RoleCustomer, "Nachfrage", 3),
	}

	_, err := a.Step(context.Background(), newStepContext(history...))
	require.NoError(t, err)

	require.Len(t, seen.Messages, 3, "failed sentinel must be skipped")
	assert.Equal(t, model.RoleUser, seen.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, seen.Messages[1].Role)
	assert.Equal(t, model.RoleUser, seen.Messages[2].Role)
}

func TestSimpleAgent_PropagatesModelError(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")
	llm.SetError(&core.ProviderError{Provider: "mock", Err: assert.AnError})

	a := NewSimpleAgent("Aria", llm)

	_, err := a.Step(context.Background(), newStepContext())

	assert.True(t, core.IsRetryable(err))
}

func TestCustomerAgent_UsesOpeningPromptOnEmptyHistory(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	var seen model.Request
	llm.SetResponder(func(req model.Request) string {
		seen = req
		return "Guten Tag, ich habe ein Problem."
	})

	a := NewCustomerAgent("Anna", llm, func(o *CustomerAgentOptions) {
		o.OpeningPrompt = "Schreibe die erste Nachricht."
	})

	turn, err := a.Step(context.Background(), newStepContext())

	require.NoError(t, err)
	assert.Equal(t, core.RoleCustomer, turn.Role)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "Schreibe die erste Nachricht.", seen.Messages[0].Content)
}

func TestCustomerAgent_RespondsToHistory(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	var seen model.Request
	llm.SetResponder(func(req model.Request) string {
		seen = req
		return "Danke!"
	})

	a := NewCustomerAgent("Anna", llm, func(o *CustomerAgentOptions) {
		o.OpeningPrompt = "Schreibe die erste Nachricht."
	})

	history := []core.Turn{
		core.NewTurn("run-test", "Anna", core.RoleCustomer, "Hallo", 0),
		core.NewTurn("run-test", "Aria", core.RoleServiceAgent, "Guten Tag", 1),
	}

	_, err := a.Step(context.Background(), newStepContext(history...))
	require.NoError(t, err)

	require.Len(t, seen.Messages, 2, "opening prompt must not be injected mid-conversation")
	assert.Equal(t, model.RoleAssistant, seen.Messages[0].Role)
	assert.Equal(t, model.RoleUser, seen.Messages[1].Role)
}

func TestRAGAgent_InjectsSnippetsAndRecordsIDs(t *testing.T) {
	store := retrieval.NewInMemoryStore()
	id := store.Add(retrieval.Document{Content: "Kreditkarte sperren über den Sperr-Notruf."})
	store.Add(retrieval.Document{Content: "Girokonto kündigen per Formular."})

	llm := model.NewMockModel("mock-model", "mock")

	var seen model.Request
	llm.SetResponder(func(req model.Request) string {
		seen = req
		return "Ich sperre die Karte sofort."
	})

	a := NewRAGAgent("Aria", llm, store)

	history := []core.Turn{core.NewTurn("run-test", "Anna", core.RoleCustomer, "Meine Kreditkarte wurde gestohlen, bitte sperren!", 0)}

	turn, err := a.Step(context.Background(), newStepContext(history...))

	require.NoError(t, err)
	assert.Contains(t, seen.Instructions, "Sperr-Notruf")
	require.NotNil(t, turn.Metadata)
	assert.Contains(t, turn.Metadata.RetrievedSnippets, id)
}

type failingStore struct{}

func (failingStore) Search(context.Context, string, int) ([]retrieval.Document, error) {
	return nil, assert.AnError
}

func TestRAGAgent_DegradesOnStoreFailure(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	a := NewRAGAgent("Aria", llm, failingStore{})

	history := []core.Turn{core.NewTurn("run-test", "Anna", core.RoleCustomer, "Hallo", 0)}

	turn, err := a.Step(context.Background(), newStepContext(history...))

	require.NoError(t, err, "store failure must not fail the step")
	assert.Nil(t, turn.Metadata)
	assert.NotEmpty(t, turn.Content)
}

func TestRAGAgent_EmptyHistorySkipsRetrieval(t *testing.T) {
	store := retrieval.NewInMemoryStore("some document")
	llm := model.NewMockModel("mock-model", "mock")

	a := NewRAGAgent("Aria", llm, store)

	turn, err := a.Step(context.Background(), newStepContext())

	require.NoError(t, err)
	assert.Nil(t, turn.Metadata)
}

// scriptedAgent returns a fixed reply or error.
type scriptedAgent struct {
	BaseAgent
	reply string
	err   error
}

func (a *scriptedAgent) Step(ctx context.Context, sc *core.StepContext) (core.Turn, error) {
	if a.err != nil {
		return core.Turn{}, a.err
	}
	return core.NewTurn(sc.RunID, a.Name(), core.RoleServiceAgent, a.reply, sc.Iteration), nil
}

func newScriptedAgent(name, reply string, err error) *scriptedAgent {
	return &scriptedAgent{BaseAgent: NewBaseAgent(name), reply: reply, err: err}
}

func TestSociety_RequiresProposers(t *testing.T) {
	_, err := NewSociety("team", model.NewMockModel("mock-model", "mock"), nil)

	assert.True(t, core.IsConfigError(err))
}

func TestSociety_ModeratorSelectsFromDrafts(t *testing.T) {
	moderator := model.NewMockModel("mock-model", "mock")
	moderator.SetResponder(func(req model.Request) string {
		// The drafts arrive as the last user message.
		last := req.Messages[len(req.Messages)-1].Content
		if !strings.Contains(last, "draft one") || !strings.Contains(last, "draft two") {
			return "missing drafts"
		}
		return "final reply"
	})

	society, err := NewSociety("team", moderator, []core.Agent{
		newScriptedAgent("direct", "draft one", nil),
		newScriptedAgent("grounded", "draft two", nil),
	})
	require.NoError(t, err)

	turn, err := society.Step(context.Background(), newStepContext())

	require.NoError(t, err)
	assert.Equal(t, "final reply", turn.Content)
	assert.Equal(t, "team", turn.Speaker)
	require.NotNil(t, turn.Metadata)
	assert.Equal(t, "moderator", turn.Metadata.SubAgent)
	assert.Equal(t, []string{"direct", "grounded"}, turn.Metadata.Proposers)
}

func TestSociety_SwallowsIndividualProposerFailures(t *testing.T) {
	moderator := model.NewMockModel("mock-model", "mock")

	society, err := NewSociety("team", moderator, []core.Agent{
		newScriptedAgent("broken", "", &core.ProviderError{Provider: "mock", Err: assert.AnError}),
		newScriptedAgent("working", "only draft", nil),
	})
	require.NoError(t, err)

	turn, err := society.Step(context.Background(), newStepContext())

	require.NoError(t, err)
	// A single surviving draft goes out unmoderated.
	assert.Equal(t, "only draft", turn.Content)
	require.NotNil(t, turn.Metadata)
	assert.Equal(t, "working", turn.Metadata.SubAgent)
	assert.Equal(t, []string{"working"}, turn.Metadata.Proposers)
	assert.Equal(t, 0, moderator.Calls())
}

func TestSociety_ModeratorFailureFallsBackToFirstDraft(t *testing.T) {
	moderator := model.NewMockModel("mock-model", "mock")
	moderator.SetError(&core.ProviderError{Provider: "mock", Err: assert.AnError})

	society, err := NewSociety("team", moderator, []core.Agent{
		newScriptedAgent("first", "first draft", nil),
		newScriptedAgent("second", "second draft", nil),
	})
	require.NoError(t, err)

	turn, err := society.Step(context.Background(), newStepContext())

	require.NoError(t, err)
	assert.Equal(t, "first draft", turn.Content)
	require.NotNil(t, turn.Metadata)
	assert.Equal(t, "first", turn.Metadata.SubAgent)
}

func TestSociety_AllProposersFailing(t *testing.T) {
	moderator := model.NewMockModel("mock-model", "mock")

	society, err := NewSociety("team", moderator, []core.Agent{
		newScriptedAgent("a", "", &core.ProviderError{Provider: "mock", Err: assert.AnError}),
		newScriptedAgent("b", "", &core.ProviderError{Provider: "mock", Err: assert.AnError}),
	})
	require.NoError(t, err)

	_, err = society.Step(context.Background(), newStepContext())

	var stepErr *core.StepFailedError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "team", stepErr.Agent)
}

func TestBaseAgent_Identity(t *testing.T) {
	base := NewBaseAgent("Aria")

	assert.Equal(t, "Aria", base.Name())
	assert.Contains(t, base.Description(), "Aria")

	base.SetDescription("custom")
	assert.Equal(t, "custom", base.Description())
}
