// Package debug records a bounded history of state changes and lets a
// developer jump back to any recorded snapshot.
//
// A Recorder observes consecutive distinct snapshots, computes which
// top-level slices changed and appends an Entry to a ring buffer (50 entries
// by default, oldest evicted first). It is an observer only: the store
// behaves the same whether or not a Recorder is attached.
//
// Time travel replaces the canonical state wholesale with a recorded
// snapshot. Out-of-range indexes report false and leave the state alone.
//
// Handle is the command surface used by the CLI console:
//
//	state              current state as JSON
//	history            one line per recorded entry
//	reset              reset to the initial state
//	update {"ui":...}  deep-merge a partial state
//	travel 3           jump to history entry 3
//	eval ui.theme      evaluate an expression against the current state
//	help               list commands
package debug
