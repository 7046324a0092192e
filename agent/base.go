package agent

import (
	"fmt"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
)

// BaseAgent bundles identity helpers shared by the concrete agent
// implementations. Embed it and supply a Step method to satisfy core.Agent.
type BaseAgent struct {
	name        string
	description string
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// messagesFromHistory maps the conversation so far into model messages from
// the perspective of the named speaker: own turns become assistant messages,
// everything else becomes user input. Failed-turn sentinels are skipped so a
// recovered conversation never replays failure markers into the model.
func messagesFromHistory(history []core.Turn, speaker string) []model.Message {
	messages := make([]model.Message, 0, len(history))

	for _, t := range history {
		if t.Failed {
			continue
		}

		role := model.RoleUser
		if t.Speaker == speaker {
			role = model.RoleAssistant
		}

		messages = append(messages, model.Message{Role: role, Content: t.Content})
	}

	return messages
}
