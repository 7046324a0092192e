package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
)

// SimpleAgentOptions configures a SimpleAgent instance.
//
// Use functional options with NewSimpleAgent to override defaults.
type SimpleAgentOptions struct {
	Instruction Instruction
	Role        string
	Temperature *float64
}

// SimpleAgent is the direct model-backed responder: it maps the conversation
// history into provider messages, prepends its instructions and returns the
// model output as its turn. No retrieval, no sub-agents.
type SimpleAgent struct {
	BaseAgent
	llm         model.Model
	instruction Instruction
	role        string
	temperature *float64
}

// NewSimpleAgent creates a model-backed agent speaking as the service side
// by default.
func NewSimpleAgent(name string, llm model.Model, optFns ...func(o *SimpleAgentOptions)) *SimpleAgent {
	opts := SimpleAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", name)),
		Role:        core.RoleServiceAgent,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &SimpleAgent{
		BaseAgent:   NewBaseAgent(name),
		llm:         llm,
		instruction: opts.Instruction,
		role:        opts.Role,
		temperature: opts.Temperature,
	}
}

// Step implements core.Agent.
func (a *SimpleAgent) Step(ctx context.Context, sc *core.StepContext) (core.Turn, error) {
	instructions, err := a.instruction.Resolve(sc)
	if err != nil {
		return core.Turn{}, fmt.Errorf("resolving instructions for %s: %w", a.Name(), err)
	}

	resp, err := a.llm.Generate(ctx, model.Request{
		Instructions: instructions,
		Messages:     messagesFromHistory(sc.History, a.Name()),
		Temperature:  a.temperature,
	})
	if err != nil {
		return core.Turn{}, err
	}

	return core.NewTurn(sc.RunID, a.Name(), a.role, resp.Text, sc.Iteration), nil
}
