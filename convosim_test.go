package convosim

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(func(o *Options) { o.AgentType = "swarm" })
	assert.True(t, core.IsConfigError(err))

	_, err = New(func(o *Options) { o.ModelProvider = "bedrock" })
	assert.True(t, core.IsConfigError(err))

	_, err = New(func(o *Options) { o.Iterations = -1 })
	assert.True(t, core.IsConfigError(err))
}

func TestSimulator_Run_UnknownScenarioFailsBeforeModelCalls(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	sim, err := New(func(o *Options) {
		o.Model = llm
		o.Scenario = "polite"
	})
	require.NoError(t, err)

	_, err = sim.Run(context.Background())

	assert.True(t, core.IsConfigError(err))
	assert.Equal(t, 0, llm.Calls())
}

func TestSimulator_Run_SimpleConversation(t *testing.T) {
	sim, err := New(func(o *Options) {
		o.Model = model.NewMockModel("mock-model", "mock")
		o.Iterations = 4
		o.Seed = 42
	})
	require.NoError(t, err)

	record, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.Equal(t, "simple", record.AgentType)
	assert.Equal(t, "mock-model", record.ModelName)
	assert.NotEmpty(t, record.InputSettings.Bank)

	history := record.History()
	require.Len(t, history, 4)
	assert.Equal(t, core.RoleCustomer, history[0].Role)
	assert.Equal(t, core.RoleServiceAgent, history[1].Role)
	assert.Equal(t, core.RoleCustomer, history[2].Role)
	assert.Equal(t, core.RoleServiceAgent, history[3].Role)

	// Delivered to the default in-memory sink.
	records := sim.Records()
	require.Len(t, records, 1)
	assert.Equal(t, record.CallID, records[0].CallID)
}

func TestSimulator_Run_SeededRunsAreReproducible(t *testing.T) {
	run := func() *core.ConversationRecord {
		sim, err := New(func(o *Options) {
			o.Model = model.NewMockModel("mock-model", "mock")
			o.Iterations = 4
			o.Seed = 7
		})
		require.NoError(t, err)

		record, err := sim.Run(context.Background())
		require.NoError(t, err)

		return record
	}

	first := run()
	second := run()

	assert.Equal(t, first.InputSettings, second.InputSettings)

	a, b := first.History(), second.History()
	require.Equal(t, len(a), len(b))

	// The transcripts match turn for turn; only ids and timestamps differ.
	for i := range a {
		assert.Equal(t, a[i].Speaker, b[i].Speaker)
		assert.Equal(t, a[i].Role, b[i].Role)
		assert.Equal(t, a[i].Content, b[i].Content)
		assert.Equal(t, a[i].Iteration, b[i].Iteration)
	}
}

func TestSimulator_Run_TerminationToken(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")
	llm.SetResponder(func(req model.Request) string {
		// The service side confirms and closes; the customer opens.
		if strings.Contains(req.Instructions, "Kundenservice-Mitarbeiter") {
			return "Gern geschehen. TERMINATE"
		}
		return "Hallo, ich habe eine Frage."
	})

	sim, err := New(func(o *Options) {
		o.Model = llm
		o.Iterations = 10
		o.Seed = 1
	})
	require.NoError(t, err)

	record, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, record.Status)

	history := record.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Gern geschehen.", history[1].Content)
}

func TestSimulator_Run_RAGArchitecture(t *testing.T) {
	sim, err := New(func(o *Options) {
		o.Model = model.NewMockModel("mock-model", "mock")
		o.AgentType = AgentTypeRAG
		o.Iterations = 2
		o.Seed = 3
	})
	require.NoError(t, err)

	record, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.Equal(t, AgentTypeRAG, record.AgentType)
	assert.Equal(t, 2, record.TurnCount())
}

func TestSimulator_Run_SocietyOfMindArchitecture(t *testing.T) {
	sim, err := New(func(o *Options) {
		o.Model = model.NewMockModel("mock-model", "mock")
		o.AgentType = AgentTypeSocietyOfMind
		o.Iterations = 2
		o.Seed = 3
	})
	require.NoError(t, err)

	record, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, record.Status)

	history := record.History()
	require.Len(t, history, 2)

	// The service turn carries society attribution.
	serviceTurn := history[1]
	require.NotNil(t, serviceTurn.Metadata)
	assert.NotEmpty(t, serviceTurn.Metadata.Proposers)
	assert.NotEmpty(t, serviceTurn.Metadata.SubAgent)
}

func TestSimulator_Run_AbortedRunStillDelivered(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")
	llm.SetError(&core.ProviderError{Provider: "mock", Err: assert.AnError})

	sim, err := New(func(o *Options) {
		o.Model = llm
		o.Iterations = 10
		o.MaxConsecutiveFailures = 2
		o.MaxRetries = 0
		o.Seed = 5
	})
	require.NoError(t, err)

	record, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.StatusAborted, record.Status)
	assert.Equal(t, 0, record.TurnCount())

	records := sim.Records()
	require.Len(t, records, 1)
	assert.Equal(t, core.StatusAborted, records[0].Status)
}

func TestSimulator_Run_SummaryAttached(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	sim, err := New(func(o *Options) {
		o.Model = llm
		o.Iterations = 2
		o.Summarize = true
		o.Seed = 11
	})
	require.NoError(t, err)

	record, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, record.Summary)
}

func TestSimulator_Run_RetryWrapsModel(t *testing.T) {
	llm := model.NewMockModel("mock-model", "mock")

	sim, err := New(func(o *Options) {
		o.Model = llm
		o.MaxRetries = 2
	})
	require.NoError(t, err)

	m, err := sim.BuildModel()
	require.NoError(t, err)

	// The wrapped model keeps reporting the adapter identity.
	assert.Equal(t, "mock-model", m.Info().Name)
}
