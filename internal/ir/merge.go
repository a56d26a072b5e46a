package ir

// DeepMerge returns a new object holding patch merged into base.
//
// For each key in patch:
//   - both sides are objects: merge recursively
//   - patch holds IRNull: the key is removed
//   - anything else (scalar, array, absent on either side): the patch value
//     wins outright
//
// Arrays are replaced, never concatenated. Slices such as ui.notifications
// are always sent whole, so replacement keeps merges predictable; any future
// field that wants append semantics must build the full array itself.
//
// Neither base nor patch is modified. Subtrees of base that the patch does
// not touch are shared with the result, which is safe because published
// trees are never mutated.
func DeepMerge(base, patch IRObject) IRObject {
	out := make(IRObject, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}

	for k, incoming := range patch {
		if _, isNull := incoming.(IRNull); isNull || incoming == nil {
			delete(out, k)
			continue
		}

		incomingObj, incomingIsObj := incoming.(IRObject)
		existingObj, existingIsObj := out[k].(IRObject)
		if incomingIsObj && existingIsObj {
			out[k] = DeepMerge(existingObj, incomingObj)
			continue
		}

		// Copy so the caller keeps no handle into the new snapshot.
		out[k] = Clone(incoming)
	}

	return out
}

// ChangedKeys returns the top-level keys whose canonical form differs
// between prev and next, in canonical key order. Keys present on only one
// side count as changed.
func ChangedKeys(prev, next IRObject) []string {
	union := make(IRObject, len(prev)+len(next))
	for k := range prev {
		union[k] = IRNull{}
	}
	for k := range next {
		union[k] = IRNull{}
	}

	var changed []string
	for _, k := range union.SortedKeys() {
		pv, pok := prev[k]
		nv, nok := next[k]
		if pok != nok || !Equal(pv, nv) {
			changed = append(changed, k)
		}
	}
	return changed
}

// ReplacementPatch returns the patch that turns from into to under
// DeepMerge: every key of to, plus an IRNull for every key of from that to
// drops. Nested objects are handled recursively so stale nested keys are
// removed as well.
func ReplacementPatch(from, to IRObject) IRObject {
	out := make(IRObject, len(to)+len(from))
	for k := range from {
		if _, ok := to[k]; !ok {
			out[k] = IRNull{}
		}
	}
	for k, v := range to {
		toObj, toIsObj := v.(IRObject)
		fromObj, fromIsObj := from[k].(IRObject)
		if toIsObj && fromIsObj {
			out[k] = ReplacementPatch(fromObj, toObj)
			continue
		}
		out[k] = v
	}
	return out
}
