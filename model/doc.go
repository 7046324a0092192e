// Package model defines the provider-neutral generation interface the agents
// drive, the retry/timeout decorators wrapping every provider call, and a
// deterministic MockModel for tests. Concrete adapters live in the openai and
// anthropic subpackages.
package model
