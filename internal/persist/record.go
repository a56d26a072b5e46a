package persist

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
)

// Storage keys.
const (
	RecordKey = "appState"
	ThemeKey  = "theme"
)

// Record is the persisted projection of the state.
type Record struct {
	UI RecordUI `json:"ui"`
}

// RecordUI holds the persisted ui fields.
type RecordUI struct {
	Theme          string `json:"theme"`
	LastViewedPage string `json:"lastViewedPage"`
}

// Project selects the persisted fields from st.
func Project(st state.AppState) Record {
	ui := st.UI()
	return Record{UI: RecordUI{Theme: ui.Theme, LastViewedPage: ui.LastViewedPage}}
}

// Encode serializes r in the stored form.
func (r Record) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(data), nil
}

// decodeRecord parses a stored record. Only the JSON shape is checked here;
// field types are checked by hydrationPatch.
func decodeRecord(raw string) (ir.IRObject, error) {
	v, err := ir.UnmarshalIRValue([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("parse record: expected object, got %s", ir.TypeName(v))
	}
	return obj, nil
}

// hydrationPatch builds the update for a stored record, keeping only the
// whitelisted fields that are present with the right type.
func hydrationPatch(rec ir.IRObject) ir.IRObject {
	ui, ok := rec.Object(state.SliceUI)
	if !ok {
		return nil
	}
	patch := ir.IRObject{}
	if theme, ok := ui["theme"].(ir.IRString); ok && theme != "" {
		patch["theme"] = theme
	}
	if page, ok := ui["lastViewedPage"].(ir.IRString); ok {
		patch["lastViewedPage"] = page
	}
	if len(patch) == 0 {
		return nil
	}
	return ir.Obj(ir.O(state.SliceUI, patch))
}
