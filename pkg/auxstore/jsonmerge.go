// Package auxstore implements MetadataStore and PropertiesStore: thin
// facades over AtomicFile keyed by resource id, plus the recursive JSON
// merge rule PropertiesStore uses to reconcile concurrent device-local
// edits without clobbering remote ones.
package auxstore

import "encoding/json"

// Merge combines newValue into oldValue using the recursive JSON merge
// rule: objects merge key-wise; arrays of like-typed elements union
// without duplicates; scalars become [old, new] if distinct and of the
// same JSON type, otherwise old wins; null is the neutral element on
// either side.
func Merge(old, new json.RawMessage) (json.RawMessage, error) {
	if isJSONNull(old) {
		return new, nil
	}
	if isJSONNull(new) {
		return old, nil
	}

	var oldVal, newVal any
	if err := json.Unmarshal(old, &oldVal); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(new, &newVal); err != nil {
		return nil, err
	}

	merged := mergeValue(oldVal, newVal)
	return json.Marshal(merged)
}

func mergeValue(old, new any) any {
	if old == nil {
		return new
	}
	if new == nil {
		return old
	}

	oldMap, oldIsMap := old.(map[string]any)
	newMap, newIsMap := new.(map[string]any)
	if oldIsMap && newIsMap {
		return mergeObjects(oldMap, newMap)
	}

	oldArr, oldIsArr := old.([]any)
	newArr, newIsArr := new.([]any)
	if oldIsArr && newIsArr {
		return unionArrays(oldArr, newArr)
	}

	return mergeScalars(old, new)
}

func mergeObjects(old, new map[string]any) map[string]any {
	out := make(map[string]any, len(old)+len(new))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range new {
		if existing, ok := out[k]; ok {
			out[k] = mergeValue(existing, v)
		} else {
			out[k] = v
		}
	}
	return out
}

func unionArrays(old, new []any) []any {
	out := make([]any, 0, len(old)+len(new))
	seen := make(map[string]struct{}, len(old)+len(new))

	add := func(v any) {
		key, err := json.Marshal(v)
		if err != nil {
			out = append(out, v)
			return
		}
		if _, ok := seen[string(key)]; ok {
			return
		}
		seen[string(key)] = struct{}{}
		out = append(out, v)
	}

	for _, v := range old {
		add(v)
	}
	for _, v := range new {
		add(v)
	}
	return out
}

// mergeScalars combines two non-container JSON values: [old, new] if
// they are distinct values of the same JSON type, otherwise old wins.
func mergeScalars(old, new any) any {
	if jsonTypeOf(old) != jsonTypeOf(new) {
		return old
	}
	if old == new {
		return old
	}
	return []any{old, new}
}

func jsonTypeOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "other"
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := make([]byte, 0, len(raw))
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			trimmed = append(trimmed, b)
		}
	}
	return len(trimmed) == 0 || string(trimmed) == "null"
}
