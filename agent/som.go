package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
)

// SocietyOptions configures a Society instance.
type SocietyOptions struct {
	// ModeratorInstruction is the system prompt conditioning the moderator's
	// selection or synthesis of the final reply.
	ModeratorInstruction Instruction
	Role                 string
	Temperature          *float64
}

// Society is the society-of-mind composition: every proposer drafts a reply
// to the same step concurrently, then a moderator model selects or
// synthesizes the outgoing turn from the drafts.
//
// Failure handling is total by construction: individual proposer failures are
// swallowed as long as at least one draft survives; a failing moderator falls
// back to the first successful draft in registration order. Only the loss of
// every proposer fails the step.
type Society struct {
	BaseAgent
	moderator   model.Model
	proposers   []core.Agent
	instruction Instruction
	role        string
	temperature *float64
}

// NewSociety creates a society-of-mind agent from a moderator model and at
// least one proposer.
func NewSociety(name string, moderator model.Model, proposers []core.Agent, optFns ...func(o *SocietyOptions)) (*Society, error) {
	if len(proposers) == 0 {
		return nil, core.Configf("society %s: at least one proposer is required", name)
	}

	opts := SocietyOptions{
		ModeratorInstruction: NewInstructionFromText("You moderate a team of assistants. Pick or combine the best draft reply. Output only the final reply."),
		Role:                 core.RoleServiceAgent,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Society{
		BaseAgent:   NewBaseAgent(name),
		moderator:   moderator,
		proposers:   proposers,
		instruction: opts.ModeratorInstruction,
		role:        opts.Role,
		temperature: opts.Temperature,
	}, nil
}

// proposal pairs a proposer with its draft, keeping registration order.
type proposal struct {
	agent string
	turn  core.Turn
}

// Step implements core.Agent.
func (s *Society) Step(ctx context.Context, sc *core.StepContext) (core.Turn, error) {
	proposals, errs := s.fanOut(ctx, sc)

	if len(proposals) == 0 {
		return core.Turn{}, &core.StepFailedError{Agent: s.Name(), Err: errors.Join(errs...)}
	}

	content, chosenBy := s.moderate(ctx, sc, proposals)

	turn := core.NewTurn(sc.RunID, s.Name(), s.role, content, sc.Iteration)

	names := make([]string, len(proposals))
	for i, p := range proposals {
		names[i] = p.agent
	}
	turn.Metadata = &core.TurnMetadata{SubAgent: chosenBy, Proposers: names}

	return turn, nil
}

// fanOut runs every proposer against the same read-only step context and
// collects the surviving drafts in registration order.
func (s *Society) fanOut(ctx context.Context, sc *core.StepContext) ([]proposal, []error) {
	var wg sync.WaitGroup

	turns := make([]*core.Turn, len(s.proposers))
	errs := make([]error, len(s.proposers))

	for i, p := range s.proposers {
		wg.Add(1)

		go func(i int, p core.Agent) {
			defer wg.Done()

			turn, err := p.Step(ctx, sc)
			if err != nil {
				errs[i] = fmt.Errorf("proposer %s: %w", p.Name(), err)
				return
			}

			turns[i] = &turn
		}(i, p)
	}

	wg.Wait()

	var (
		proposals []proposal
		failed    []error
	)

	for i, t := range turns {
		if t == nil {
			sc.Logger.Warn("society %s: %v", s.Name(), errs[i])
			failed = append(failed, errs[i])
			continue
		}
		proposals = append(proposals, proposal{agent: s.proposers[i].Name(), turn: *t})
	}

	return proposals, failed
}

// moderate asks the moderator model to select or synthesize the final reply.
// On moderator failure the first surviving draft wins.
func (s *Society) moderate(ctx context.Context, sc *core.StepContext, proposals []proposal) (content, chosenBy string) {
	if len(proposals) == 1 {
		return proposals[0].turn.Content, proposals[0].agent
	}

	instructions, err := s.instruction.Resolve(sc)
	if err != nil {
		sc.Logger.Warn("society %s: resolving moderator instructions: %v, using first draft", s.Name(), err)
		return proposals[0].turn.Content, proposals[0].agent
	}

	messages := messagesFromHistory(sc.History, s.Name())
	messages = append(messages, model.Message{Role: model.RoleUser, Content: formatProposals(proposals)})

	resp, err := s.moderator.Generate(ctx, model.Request{
		Instructions: instructions,
		Messages:     messages,
		Temperature:  s.temperature,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		sc.Logger.Warn("society %s: moderator failed (%v), using first draft", s.Name(), err)
		return proposals[0].turn.Content, proposals[0].agent
	}

	return resp.Text, "moderator"
}

func formatProposals(proposals []proposal) string {
	var sb strings.Builder

	sb.WriteString("Draft replies:\n")
	for i, p := range proposals {
		sb.WriteString(fmt.Sprintf("\n--- Draft %d (%s) ---\n%s\n", i+1, p.agent, p.turn.Content))
	}

	return sb.String()
}
