// Package engine implements the statecore Store: the single source of truth
// for application state.
//
// ARCHITECTURE:
//
// Single-Writer Publication:
// Every mutation (Update, Reset, Replace and the derived operations) runs
// under the store's writer lock. Inside the lock the store:
//  1. Computes the patch against the current snapshot (derived ops)
//  2. Validates the patch shape and merges it into a new snapshot
//  3. Validates the merged snapshot (typed decode, optional CUE schema)
//  4. Stamps the snapshot with the next seq from the Clock
//  5. Enqueues the snapshot to every subscriber queue, in subscription order
//
// A rejected mutation returns *UpdateError and leaves the current snapshot
// untouched.
//
// Per-Subscriber Delivery:
// Each Subscription owns an unbounded FIFO queue drained by its own
// goroutine. Update never waits for callbacks, a slow subscriber only delays
// itself, and every subscriber sees the same sequence of snapshots in the
// same order. Settle waits until all queues are drained.
//
// Selectors:
// Select and Pairwise layer structural-equality suppression (go-cmp) on top
// of Subscribe, so observers only hear about changes to the part of the
// state they project.
//
// CRITICAL PATTERNS:
//
// Immutable Snapshots:
// Published snapshots are never mutated. Merges build new trees and share
// untouched subtrees with the previous snapshot.
//
// Logical Clock:
// Snapshot order is the seq stamped by Clock.Next(), never wall-clock time.
package engine
