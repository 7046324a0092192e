// Package core defines the shared data model of the simulation engine: turns,
// conversation records with their status state machine, the Agent interface
// and its per-step context, plus the error taxonomy every layer reports
// failures through. It is the leaf dependency of all other packages.
package core
