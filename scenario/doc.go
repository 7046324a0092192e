// Package scenario loads named, immutable bundles of environment parameters
// that condition a simulation run: sampled persona settings for both sides of
// the conversation, the task to resolve, the communication channel and the
// prompt templates rendered against the sampled values.
//
// Scenario names form a closed set; loading an unrecognized name fails with a
// configuration error before any model call is made. Scenario effects live
// entirely in the bundle data, so adding a scenario means adding a YAML file,
// not touching the engine.
package scenario
