// Package ir provides the value tree that application state is built from.
//
// Every snapshot held by the store is an IRObject whose leaves are IRString,
// IRInt, IRFloat, IRBool, IRNull or IRArray values. The package imports
// nothing internal so that state, engine and persistence can all share it.
//
// Key design constraints:
//   - Trees are never mutated once published; DeepMerge copies the path it
//     touches and shares untouched subtrees with the previous snapshot.
//   - Arrays are leaves for merging purposes: an incoming array replaces the
//     existing one, it is never concatenated.
//   - MarshalCanonical (RFC 8785 style) is the only serialization used for
//     equality, diffing and content hashes.
package ir
