// Package persist keeps a whitelisted projection of the application state in
// durable storage.
//
// An Adapter hydrates the store synchronously when it is constructed, so the
// first snapshot any other subscriber sees already reflects persisted data.
// Afterwards it observes the full state stream, skips the hydrated emission
// and writes the record on a debounced schedule:
//
//	emission ─► reset timer ─► (quiet window) ─► write {ui:{theme,lastViewedPage}}
//
// Two keys are used:
//
//   - "appState": the JSON record {"ui":{"theme":..,"lastViewedPage":..}}
//   - "theme": the legacy plain-string theme preference
//
// Storage failures and malformed records are logged and otherwise ignored;
// the store keeps running from its in-memory defaults.
package persist
