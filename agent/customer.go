package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
)

// CustomerAgentOptions configures a CustomerAgent instance.
type CustomerAgentOptions struct {
	Instruction Instruction
	// OpeningPrompt is the one-shot prompt used to produce the customer's
	// first message when the conversation history is still empty.
	OpeningPrompt string
	Temperature   *float64
}

// CustomerAgent plays the customer side of the simulation. On the very first
// turn it generates the conversation opener from a dedicated prompt; after
// that it responds to the service side like any model-backed agent.
type CustomerAgent struct {
	BaseAgent
	llm           model.Model
	instruction   Instruction
	openingPrompt string
	temperature   *float64
}

// NewCustomerAgent creates the customer-side agent.
func NewCustomerAgent(name string, llm model.Model, optFns ...func(o *CustomerAgentOptions)) *CustomerAgent {
	opts := CustomerAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a bank customer contacting support.", name)),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &CustomerAgent{
		BaseAgent:     NewBaseAgent(name),
		llm:           llm,
		instruction:   opts.Instruction,
		openingPrompt: opts.OpeningPrompt,
		temperature:   opts.Temperature,
	}
}

// Step implements core.Agent.
func (a *CustomerAgent) Step(ctx context.Context, sc *core.StepContext) (core.Turn, error) {
	instructions, err := a.instruction.Resolve(sc)
	if err != nil {
		return core.Turn{}, fmt.Errorf("resolving instructions for %s: %w", a.Name(), err)
	}

	messages := messagesFromHistory(sc.History, a.Name())

	// An empty history means this turn opens the conversation.
	if len(messages) == 0 && a.openingPrompt != "" {
		messages = []model.Message{{Role: model.RoleUser, Content: a.openingPrompt}}
	}

	resp, err := a.llm.Generate(ctx, model.Request{
		Instructions: instructions,
		Messages:     messages,
		Temperature:  a.temperature,
	})
	if err != nil {
		return core.Turn{}, err
	}

	return core.NewTurn(sc.RunID, a.Name(), core.RoleCustomer, resp.Text, sc.Iteration), nil
}
