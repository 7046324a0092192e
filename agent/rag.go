package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
	"github.com/hupe1980/convosim/retrieval"
)

// RAGAgentOptions configures a RAGAgent instance.
type RAGAgentOptions struct {
	Instruction Instruction
	Role        string
	// TopK bounds how many knowledge base documents are injected per step.
	TopK        int
	Temperature *float64
}

// RAGAgent augments a model-backed agent with knowledge base retrieval: before
// each generation it searches the store with the latest counterpart message
// and injects the best matches into the request. A failing store degrades the
// step to a plain generation instead of failing it; the turn records which
// snippets grounded the reply.
type RAGAgent struct {
	BaseAgent
	llm         model.Model
	store       retrieval.Store
	instruction Instruction
	role        string
	topK        int
	temperature *float64
}

// NewRAGAgent creates a retrieval-augmented agent speaking as the service
// side by default.
func NewRAGAgent(name string, llm model.Model, store retrieval.Store, optFns ...func(o *RAGAgentOptions)) *RAGAgent {
	opts := RAGAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant grounded in a knowledge base.", name)),
		Role:        core.RoleServiceAgent,
		TopK:        3,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RAGAgent{
		BaseAgent:   NewBaseAgent(name),
		llm:         llm,
		store:       store,
		instruction: opts.Instruction,
		role:        opts.Role,
		topK:        opts.TopK,
		temperature: opts.Temperature,
	}
}

// Step implements core.Agent.
func (a *RAGAgent) Step(ctx context.Context, sc *core.StepContext) (core.Turn, error) {
	instructions, err := a.instruction.Resolve(sc)
	if err != nil {
		return core.Turn{}, fmt.Errorf("resolving instructions for %s: %w", a.Name(), err)
	}

	docs := a.retrieve(ctx, sc)

	if len(docs) > 0 {
		instructions = fmt.Sprintf("%s\n\nKnowledge base excerpts:\n%s", instructions, formatDocs(docs))
	}

	resp, err := a.llm.Generate(ctx, model.Request{
		Instructions: instructions,
		Messages:     messagesFromHistory(sc.History, a.Name()),
		Temperature:  a.temperature,
	})
	if err != nil {
		return core.Turn{}, err
	}

	turn := core.NewTurn(sc.RunID, a.Name(), a.role, resp.Text, sc.Iteration)

	if len(docs) > 0 {
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		turn.Metadata = &core.TurnMetadata{RetrievedSnippets: ids}
	}

	return turn, nil
}

// retrieve searches the store with the latest counterpart message. Store
// failures are logged and swallowed so retrieval trouble never aborts a turn.
func (a *RAGAgent) retrieve(ctx context.Context, sc *core.StepContext) []retrieval.Document {
	query := sc.LastContent()
	if query == "" {
		return nil
	}

	docs, err := a.store.Search(ctx, query, a.topK)
	if err != nil {
		sc.Logger.Warn("knowledge base search failed, continuing without retrieval: %v", err)
		return nil
	}

	return docs
}

func formatDocs(docs []retrieval.Document) string {
	var sb strings.Builder
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[%d] %s", i+1, d.Content))
	}
	return sb.String()
}
