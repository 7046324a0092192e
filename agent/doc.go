// Package agent contains the conversational agent architectures that can be
// stepped by the runner: the plain model-backed SimpleAgent, the
// knowledge-base grounded RAGAgent, the multi-proposer Society and the
// customer-side CustomerAgent that opens and drives the conversation.
//
// All agents satisfy core.Agent: a Step maps the shared conversation history
// into one new turn. Instructions can be static strings or dynamic Providers
// resolved per step.
package agent
