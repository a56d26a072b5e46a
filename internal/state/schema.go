package state

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/statecore/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// SchemaError reports a CUE schema violation.
type SchemaError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Schema validates trees and persisted records against the embedded CUE
// schema. A cue.Context is not safe for concurrent use, so every call holds
// the schema's lock.
type Schema struct {
	mu     sync.Mutex
	ctx    *cue.Context
	state  cue.Value
	record cue.Value
}

// NewSchema compiles the embedded schema.
func NewSchema() (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", formatCUEError(err))
	}
	return &Schema{
		ctx:    ctx,
		state:  v.LookupPath(cue.ParsePath("#State")),
		record: v.LookupPath(cue.ParsePath("#Record")),
	}, nil
}

// ValidateState checks a full snapshot.
func (s *Schema) ValidateState(st AppState) error {
	return s.check(s.state, st.root)
}

// ValidateRecord checks a persisted record.
func (s *Schema) ValidateRecord(record ir.IRObject) error {
	return s.check(s.record, record)
}

func (s *Schema) check(def cue.Value, tree ir.IRObject) error {
	data, err := ir.MarshalIRValue(tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.CompileBytes(data, cue.Filename("state.json"))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// LoadOverlay reads an initial-state overlay from a .cue or .json file and
// returns it as a patch. CUE overlays must evaluate to concrete values, for
// example `ui: theme: "dark"`.
func (s *Schema) LoadOverlay(path string) (ir.IRObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		obj, err := decodeOverlayJSON(data)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", path, err)
		}
		return obj, nil
	case ".cue":
	default:
		return nil, fmt.Errorf("overlay %s: unsupported file type (want .cue or .json)", path)
	}

	s.mu.Lock()
	v := s.ctx.CompileBytes(data, cue.Filename(filepath.Base(path)))
	var out []byte
	if err = v.Err(); err == nil {
		if err = v.Validate(cue.Concrete(true)); err == nil {
			out, err = v.MarshalJSON()
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("overlay %s: %w", path, formatCUEError(err))
	}

	obj, err := decodeOverlayJSON(out)
	if err != nil {
		return nil, fmt.Errorf("overlay %s: %w", path, err)
	}
	return obj, nil
}

func decodeOverlayJSON(data []byte) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := obj.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return obj, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	se := &SchemaError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}
