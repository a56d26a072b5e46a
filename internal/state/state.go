package state

import (
	"github.com/roach88/statecore/internal/ir"
)

// AppState is one immutable snapshot of the application state.
//
// The zero value is an empty snapshot; the store always publishes snapshots
// built from Initial().
type AppState struct {
	root ir.IRObject
	seq  int64
}

// FromTree wraps a tree as a snapshot. The tree is copied so the caller
// keeps no reference into the result.
func FromTree(root ir.IRObject) AppState {
	return AppState{root: root.Clone()}
}

// Seq returns the store sequence number this snapshot was published with.
// Snapshots that were never published report 0.
func (s AppState) Seq() int64 {
	return s.seq
}

// WithSeq returns the same snapshot stamped with seq.
func (s AppState) WithSeq(seq int64) AppState {
	return AppState{root: s.root, seq: seq}
}

// Apply merges patch into s and returns the new snapshot. s is unchanged.
func (s AppState) Apply(patch ir.IRObject) AppState {
	return AppState{root: ir.DeepMerge(s.root, patch), seq: s.seq}
}

// Tree returns a deep copy of the snapshot tree.
func (s AppState) Tree() ir.IRObject {
	if s.root == nil {
		return ir.IRObject{}
	}
	return s.root.Clone()
}

// Keys returns the top-level slice names in canonical order.
func (s AppState) Keys() []string {
	return s.root.SortedKeys()
}

// Slice returns a copy of the named top-level value, including opaque
// extension slices.
func (s AppState) Slice(name string) (ir.IRValue, bool) {
	v, ok := s.root[name]
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// Lookup returns a copy of the value at a dotted path such as "ui.theme".
func (s AppState) Lookup(path string) (ir.IRValue, bool) {
	v, ok := s.root.Lookup(path)
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// User decodes the user slice.
//
// The store runs Validate on every state it publishes, and Validate decodes
// the user and ui slices, so for published states the decode cannot fail.
// A state built with FromTree from an invalid tree yields the zero value.
func (s AppState) User() UserState {
	var u UserState
	_ = decodeSlice(s.root, SliceUser, &u)
	return u
}

// UI decodes the ui slice. Decode errors yield the zero value; see User.
func (s AppState) UI() UIState {
	var ui UIState
	_ = decodeSlice(s.root, SliceUI, &ui)
	return ui
}

// Router decodes the router slice; ok is false when the slice is absent.
func (s AppState) Router() (RouterState, bool) {
	var r RouterState
	ok := decodeSlice(s.root, SliceRouter, &r) == nil && s.has(SliceRouter)
	return r, ok
}

// Preferences decodes the preferences slice; ok is false when it is absent.
func (s AppState) Preferences() (PreferencesState, bool) {
	var p PreferencesState
	ok := decodeSlice(s.root, SlicePreferences, &p) == nil && s.has(SlicePreferences)
	return p, ok
}

// Filters decodes the filters slice; ok is false when it is absent.
func (s AppState) Filters() (FiltersState, bool) {
	var f FiltersState
	ok := decodeSlice(s.root, SliceFilters, &f) == nil && s.has(SliceFilters)
	return f, ok
}

// Equal reports whether both snapshots hold the same tree. Sequence numbers
// are ignored.
func (s AppState) Equal(other AppState) bool {
	return ir.Equal(s.root, other.root)
}

// Digest returns the content hash of the snapshot tree.
func (s AppState) Digest() string {
	d, err := ir.Digest(ir.DomainSnapshot, s.root)
	if err != nil {
		return ""
	}
	return d
}

// MarshalJSON encodes the snapshot tree.
func (s AppState) MarshalJSON() ([]byte, error) {
	if s.root == nil {
		return []byte("{}"), nil
	}
	return s.root.MarshalJSON()
}

// ChangedSlices returns the top-level keys whose serialized form differs
// between prev and next.
func ChangedSlices(prev, next AppState) []string {
	return ir.ChangedKeys(prev.root, next.root)
}

func (s AppState) has(name string) bool {
	_, ok := s.root[name]
	return ok
}

func decodeSlice(root ir.IRObject, name string, out any) error {
	v, ok := root[name]
	if !ok {
		return nil
	}
	return ir.Decode(v, out)
}
