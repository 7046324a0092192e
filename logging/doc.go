// Package logging provides a tiny abstraction so the simulation engine can
// depend on a minimal Logger interface while callers plug in any structured
// logger. Slog and zerolog backed implementations are provided, plus a NoOp
// default for library embedding and tests.
package logging
