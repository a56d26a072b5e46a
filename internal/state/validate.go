package state

import (
	"fmt"
	"slices"

	"github.com/roach88/statecore/internal/ir"
)

// ViolationKind classifies a ValidationError.
type ViolationKind int

const (
	// InvalidSlice: a known slice has the wrong shape (not an object, or a
	// required slice removed).
	InvalidSlice ViolationKind = iota + 1
	// InvalidValue: a field inside a known slice has the wrong type or an
	// out-of-range value.
	InvalidValue
)

func (k ViolationKind) String() string {
	switch k {
	case InvalidSlice:
		return "invalid slice"
	case InvalidValue:
		return "invalid value"
	}
	return "unknown"
}

// ValidationError describes why a patch or tree was rejected.
type ValidationError struct {
	Kind    ViolationKind
	Slice   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Slice, e.Message)
}

// ValidatePatch checks the shape of a patch before it is merged: required
// slices must be objects, optional slices objects or null. Unknown top-level
// keys are opaque and always accepted.
func ValidatePatch(patch ir.IRObject) error {
	for _, name := range patch.SortedKeys() {
		v := patch[name]
		switch {
		case slices.Contains(RequiredSlices, name):
			if _, ok := v.(ir.IRObject); !ok {
				return &ValidationError{
					Kind:    InvalidSlice,
					Slice:   name,
					Message: fmt.Sprintf("must be an object, got %s", ir.TypeName(v)),
				}
			}
		case slices.Contains(OptionalSlices, name):
			switch v.(type) {
			case ir.IRObject, ir.IRNull:
			default:
				return &ValidationError{
					Kind:    InvalidSlice,
					Slice:   name,
					Message: fmt.Sprintf("must be an object or null, got %s", ir.TypeName(v)),
				}
			}
		}
	}
	return nil
}

// Validate checks a whole tree: required slices present, and every known
// slice decodes into its typed form with valid enumerations.
func Validate(s AppState) error {
	for _, name := range RequiredSlices {
		if _, ok := s.root.Object(name); !ok {
			return &ValidationError{Kind: InvalidSlice, Slice: name, Message: "required slice missing"}
		}
	}

	var user UserState
	if err := decodeSlice(s.root, SliceUser, &user); err != nil {
		return &ValidationError{Kind: InvalidValue, Slice: SliceUser, Message: err.Error()}
	}

	var ui UIState
	if err := decodeSlice(s.root, SliceUI, &ui); err != nil {
		return &ValidationError{Kind: InvalidValue, Slice: SliceUI, Message: err.Error()}
	}
	for i, n := range ui.Notifications {
		if !n.Type.Valid() {
			return &ValidationError{
				Kind:    InvalidValue,
				Slice:   SliceUI,
				Message: fmt.Sprintf("notifications[%d]: unknown type %q", i, n.Type),
			}
		}
	}

	var router RouterState
	if err := decodeSlice(s.root, SliceRouter, &router); err != nil {
		return &ValidationError{Kind: InvalidValue, Slice: SliceRouter, Message: err.Error()}
	}

	var prefs PreferencesState
	if err := decodeSlice(s.root, SlicePreferences, &prefs); err != nil {
		return &ValidationError{Kind: InvalidValue, Slice: SlicePreferences, Message: err.Error()}
	}

	var filters FiltersState
	if err := decodeSlice(s.root, SliceFilters, &filters); err != nil {
		return &ValidationError{Kind: InvalidValue, Slice: SliceFilters, Message: err.Error()}
	}
	if d := filters.SortDirection; d != "" && d != SortAsc && d != SortDesc {
		return &ValidationError{
			Kind:    InvalidValue,
			Slice:   SliceFilters,
			Message: fmt.Sprintf("unknown sort direction %q", d),
		}
	}
	return nil
}
