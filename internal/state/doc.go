// Package state defines the application state model: the named slices
// (user, ui, router, preferences, filters), notifications, the initial
// snapshot, patch builders and validation.
//
// An AppState wraps an immutable ir.IRObject. Typed accessors decode copies
// of individual slices, so callers never hold a reference into the live
// tree. Top-level keys that are not part of the closed schema are carried
// as opaque values and survive every merge.
//
// Patches are plain ir.IRObject trees merged with ir.DeepMerge; the builders
// in patch.go produce the minimal tree for each domain operation.
package state
