// Package convosim provides a high-level façade for generating simulated
// customer service conversations. Most applications interact with this
// package by:
//  1. Creating a Simulator via New() with the desired model, agent
//     architecture and scenario
//  2. Calling Run() once per conversation to generate
//
// The façade wires the model provider adapter, scenario sampling, agent
// construction and the runner together. All defaults are safe for local
// development; production deployments typically supply a persistent sink and
// a structured logger.
package convosim

import (
	"context"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/convosim/agent"
	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/logging"
	"github.com/hupe1980/convosim/model"
	"github.com/hupe1980/convosim/model/anthropic"
	"github.com/hupe1980/convosim/model/openai"
	"github.com/hupe1980/convosim/retrieval"
	"github.com/hupe1980/convosim/runner"
	"github.com/hupe1980/convosim/scenario"
	"github.com/hupe1980/convosim/sink"
)

// Supported agent architectures for the service side.
const (
	AgentTypeSimple        = "simple"
	AgentTypeRAG           = "rag"
	AgentTypeSocietyOfMind = "society_of_mind"
)

// AgentTypes returns the closed set of recognized agent architectures.
func AgentTypes() []string {
	return []string{AgentTypeSimple, AgentTypeRAG, AgentTypeSocietyOfMind}
}

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// Providers returns the closed set of recognized model providers.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderGroq, ProviderAnthropic}
}

// Options configure a Simulator instance.
type Options struct {
	// ModelName selects the backend model; empty uses the adapter default.
	ModelName string
	// ModelProvider selects the provider adapter.
	ModelProvider string
	// APIKey overrides the provider's environment credential.
	APIKey string
	// AgentType selects the service-side architecture.
	AgentType string
	// Scenario names the environment bundle conditioning the run.
	Scenario string
	// ScenarioDir overrides the embedded scenario bundles.
	ScenarioDir string
	// Iterations is the total turn budget of a conversation.
	Iterations int
	// MaxConsecutiveFailures aborts a run after this many failed steps in
	// a row.
	MaxConsecutiveFailures int
	// StepTimeout bounds each agent step; zero disables the bound.
	StepTimeout time.Duration
	// MaxRetries is the number of retries per model call on retryable
	// provider failures.
	MaxRetries int
	// Seed fixes scenario sampling for reproducible runs; zero samples
	// from the clock.
	Seed int64
	// KnowledgeStore backs the rag architecture and the knowledge-grounded
	// proposer of society_of_mind. Defaults to an in-memory store seeded
	// with a small banking FAQ.
	KnowledgeStore retrieval.Store
	// Summarize generates a post-run reflection summary.
	Summarize bool
	// Sink receives finalized records; FallbackSink catches sink failures.
	// Defaults to an in-memory sink.
	Sink         sink.Sink
	FallbackSink sink.Sink
	// Model overrides the provider adapter entirely; useful for tests.
	Model model.Model
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Simulator generates simulated conversations for one fixed configuration.
// Each Run samples a fresh scenario instance and produces one record.
type Simulator struct {
	opts Options
	mem  *sink.MemorySink
}

// New validates the configuration and creates a Simulator. Unknown agent
// types, providers and scenario names fail here, before any provider call.
func New(optFns ...func(o *Options)) (*Simulator, error) {
	opts := Options{
		ModelProvider:          ProviderOpenAI,
		AgentType:              AgentTypeSimple,
		Scenario:               scenario.Default,
		Iterations:             10,
		MaxConsecutiveFailures: 3,
		MaxRetries:             2,
		Logger:                 logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if !contains(AgentTypes(), opts.AgentType) {
		return nil, core.Configf("unknown agent type %q (recognized: %v)", opts.AgentType, AgentTypes())
	}

	if opts.Model == nil && !contains(Providers(), opts.ModelProvider) {
		return nil, core.Configf("unknown model provider %q (recognized: %v)", opts.ModelProvider, Providers())
	}

	if opts.Iterations <= 0 {
		return nil, core.Configf("iterations must be positive, got %d", opts.Iterations)
	}

	s := &Simulator{opts: opts}

	if s.opts.Sink == nil {
		s.mem = sink.NewMemorySink()
		s.opts.Sink = s.mem
	}

	if s.opts.KnowledgeStore == nil {
		s.opts.KnowledgeStore = defaultKnowledgeStore()
	}

	return s, nil
}

// Records returns the conversations collected by the default in-memory sink.
// Empty when a custom sink was configured.
func (s *Simulator) Records() []*core.ConversationRecord {
	if s.mem == nil {
		return nil
	}
	return s.mem.Records()
}

// BuildModel returns the configured provider adapter wrapped with retry, for
// uses outside the simulation loop such as grading finished conversations.
func (s *Simulator) BuildModel() (model.Model, error) {
	return s.buildModel()
}

// Run generates one conversation: it samples the scenario, builds both
// participants, drives the turn loop and returns the finalized record. The
// record is returned even when the run aborts; the error then describes why
// delivery or the run itself failed.
func (s *Simulator) Run(ctx context.Context) (*core.ConversationRecord, error) {
	scenarioOpts := []func(o *scenario.Options){}
	if s.opts.Seed != 0 {
		scenarioOpts = append(scenarioOpts, scenario.WithSeed(s.opts.Seed))
	}
	if s.opts.ScenarioDir != "" {
		scenarioOpts = append(scenarioOpts, scenario.WithDir(s.opts.ScenarioDir))
	}

	sc, err := scenario.Load(s.opts.Scenario, scenarioOpts...)
	if err != nil {
		return nil, err
	}

	llm, err := s.buildModel()
	if err != nil {
		return nil, err
	}

	participants, err := s.buildParticipants(sc, llm)
	if err != nil {
		return nil, err
	}

	info := llm.Info()

	record := core.NewConversationRecord(
		core.NewID(), info.Name, info.Provider, s.opts.AgentType, sc.Name,
		s.opts.Iterations, sc.Settings,
	)

	runnerOpts := []func(o *runner.Options){func(o *runner.Options) {
		o.Iterations = s.opts.Iterations
		o.MaxConsecutiveFailures = s.opts.MaxConsecutiveFailures
		o.StepTimeout = s.opts.StepTimeout
		o.Logger = s.opts.Logger
		o.Sink = s.opts.Sink
		o.FallbackSink = s.opts.FallbackSink
	}}

	if s.opts.Summarize {
		summaryPrompt, err := sc.SummaryPrompt()
		if err != nil {
			return nil, err
		}

		runnerOpts = append(runnerOpts, func(o *runner.Options) {
			o.SummaryModel = llm
			o.SummaryPrompt = summaryPrompt
		})
	}

	orchestrator, err := runner.New(participants, runnerOpts...)
	if err != nil {
		return nil, err
	}

	if err := orchestrator.Run(ctx, record); err != nil {
		return record, err
	}

	return record, nil
}

// buildModel constructs the provider adapter and wraps it with retry.
func (s *Simulator) buildModel() (model.Model, error) {
	base := s.opts.Model

	if base == nil {
		switch s.opts.ModelProvider {
		case ProviderOpenAI:
			base = openai.NewModel(func(o *openai.Options) {
				if s.opts.ModelName != "" {
					o.Model = s.opts.ModelName
				}
				o.APIKey = s.opts.APIKey
			})
		case ProviderGroq:
			base = openai.NewModel(openai.WithGroq(), func(o *openai.Options) {
				if s.opts.ModelName != "" {
					o.Model = s.opts.ModelName
				}
				o.APIKey = s.opts.APIKey
			})
		case ProviderAnthropic:
			base = anthropic.NewModel(func(o *anthropic.Options) {
				if s.opts.ModelName != "" {
					o.Model = anthropicsdk.Model(s.opts.ModelName)
				}
				o.APIKey = s.opts.APIKey
			})
		default:
			return nil, core.Configf("unknown model provider %q", s.opts.ModelProvider)
		}
	}

	if s.opts.MaxRetries <= 0 {
		return base, nil
	}

	return model.WithRetry(base, func(o *model.RetryOptions) {
		o.MaxAttempts = s.opts.MaxRetries + 1
		o.Logger = s.opts.Logger
	}), nil
}

// buildParticipants assembles the customer and the service side. The customer
// always speaks first.
func (s *Simulator) buildParticipants(sc *scenario.Scenario, llm model.Model) ([]core.Agent, error) {
	customerInstructions, err := sc.CustomerInstructions()
	if err != nil {
		return nil, err
	}

	openingPrompt, err := sc.OpeningPrompt()
	if err != nil {
		return nil, err
	}

	customer := agent.NewCustomerAgent(sc.Settings.CustomerName, llm, func(o *agent.CustomerAgentOptions) {
		o.Instruction = agent.NewInstructionFromText(customerInstructions)
		o.OpeningPrompt = openingPrompt
	})

	service, err := s.buildServiceAgent(sc, llm)
	if err != nil {
		return nil, err
	}

	return []core.Agent{customer, service}, nil
}

func (s *Simulator) buildServiceAgent(sc *scenario.Scenario, llm model.Model) (core.Agent, error) {
	name := sc.Settings.ServiceAgentName

	switch s.opts.AgentType {
	case AgentTypeSimple:
		instructions, err := sc.ServiceInstructions()
		if err != nil {
			return nil, err
		}

		return agent.NewSimpleAgent(name, llm, func(o *agent.SimpleAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(instructions)
		}), nil

	case AgentTypeRAG:
		instructions, err := sc.RAGInstructions()
		if err != nil {
			return nil, err
		}

		return agent.NewRAGAgent(name, llm, s.opts.KnowledgeStore, func(o *agent.RAGAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(instructions)
		}), nil

	case AgentTypeSocietyOfMind:
		return s.buildSociety(sc, llm)

	default:
		return nil, core.Configf("unknown agent type %q", s.opts.AgentType)
	}
}

// buildSociety composes the society-of-mind service side: a direct responder,
// a knowledge-grounded responder and a critic propose drafts, a moderator
// model picks or combines them.
func (s *Simulator) buildSociety(sc *scenario.Scenario, llm model.Model) (core.Agent, error) {
	name := sc.Settings.ServiceAgentName

	serviceInstructions, err := sc.ServiceInstructions()
	if err != nil {
		return nil, err
	}

	ragInstructions, err := sc.RAGInstructions()
	if err != nil {
		return nil, err
	}

	criticInstructions, err := sc.CriticInstructions()
	if err != nil {
		return nil, err
	}

	moderatorInstructions, err := sc.ModeratorInstructions()
	if err != nil {
		return nil, err
	}

	proposers := []core.Agent{
		agent.NewSimpleAgent(name, llm, func(o *agent.SimpleAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(serviceInstructions)
		}),
		agent.NewRAGAgent(name+"-knowledge", llm, s.opts.KnowledgeStore, func(o *agent.RAGAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(ragInstructions)
		}),
		agent.NewSimpleAgent(name+"-critic", llm, func(o *agent.SimpleAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(criticInstructions)
		}),
	}

	return agent.NewSociety(name, llm, proposers, func(o *agent.SocietyOptions) {
		o.ModeratorInstruction = agent.NewInstructionFromText(moderatorInstructions)
	})
}

// defaultKnowledgeStore seeds a small banking FAQ so the rag architecture
// works out of the box.
func defaultKnowledgeStore() retrieval.Store {
	return retrieval.NewInMemoryStore(
		"Girokonto kündigen: Die Kündigung eines Girokontos ist jederzeit ohne Frist möglich. Restguthaben wird auf ein Referenzkonto überwiesen.",
		"Kreditkarte sperren: Eine gestohlene oder verlorene Karte kann rund um die Uhr über den Sperr-Notruf 116 116 gesperrt werden. Die Ersatzkarte kommt innerhalb von fünf Werktagen.",
		"Online-Banking gesperrt: Nach drei falschen PIN-Eingaben wird der Zugang gesperrt. Die Entsperrung erfolgt über die Filiale oder den telefonischen Kundenservice nach Identitätsprüfung.",
		"Überweisungsdauer: SEPA-Überweisungen dauern maximal einen Bankarbeitstag, Echtzeitüberweisungen wenige Sekunden gegen Entgelt.",
		"Ratenkredit: Ratenkredite sind ab 1.000 Euro mit Laufzeiten von 12 bis 84 Monaten möglich. Eine vorzeitige Rückzahlung ist gegen Vorfälligkeitsentschädigung erlaubt.",
		"Kontogebühren: Das Standardkonto kostet 4,90 Euro im Monat. Für Studenten und Auszubildende ist die Kontoführung kostenlos.",
	)
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
