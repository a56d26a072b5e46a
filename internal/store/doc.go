// Package store provides SQLite-backed durable storage for statecore.
//
// The store holds two kinds of data:
//   - Records: a key/value table used by the persistence adapter (the
//     "appState" record and the legacy "theme" key)
//   - History: an append-only log of debug history entries, one row per
//     recorded snapshot, grouped by recorder session
//
// # Critical Patterns
//
// Logical Ordering
//   - History rows are ordered by seq INTEGER (the store's logical clock),
//     never by wall-clock timestamps
//   - All history queries include ORDER BY seq ASC, id ASC
//
// Idempotent Writes
//   - UNIQUE(session, seq) on history rows; duplicate appends are ignored
//   - Set on an existing key replaces its value
//
// Canonical Snapshots
//   - Snapshots are stored as RFC 8785 canonical JSON (internal/ir), so the
//     stored digest can be recomputed from the stored text
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
