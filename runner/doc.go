// Package runner drives simulated conversations: participants step
// round-robin against a shared transcript until the iteration budget is
// spent, a participant requests termination, consecutive failures cross the
// abort threshold or the run is cancelled. The resulting record is always
// finalized and handed to the configured sink, with optional fallback
// delivery.
package runner
