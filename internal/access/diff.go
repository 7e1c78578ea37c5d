package access

import (
	"reflect"
	"sort"
)

// changedFields returns the sorted top-level keys present in either redacted
// snapshot whose values differ structurally. Both inputs are already
// redacted; sensitive fields carry identical markers on both sides and never
// appear in the result.
func changedFields(oldValues, newValues map[string]any) []string {
	seen := make(map[string]struct{}, len(oldValues)+len(newValues))
	var changed []string

	consider := func(key string) {
		if _, done := seen[key]; done {
			return
		}
		seen[key] = struct{}{}
		oldV, oldOK := oldValues[key]
		newV, newOK := newValues[key]
		if oldOK != newOK || !structurallyEqual(oldV, newV) {
			changed = append(changed, key)
		}
	}

	for key := range oldValues {
		consider(key)
	}
	for key := range newValues {
		consider(key)
	}

	sort.Strings(changed)
	return changed
}

// snapshotKeys returns the sorted top-level keys of a snapshot, used as the
// changed-field list for creates and deletes.
func snapshotKeys(snapshot map[string]any) []string {
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// structurallyEqual is deep equality tolerant of the numeric type drift a
// JSON round-trip introduces (int 5 vs float64 5).
func structurallyEqual(a, b any) bool {
	if na, ok := asFloat(a); ok {
		nb, ok := asFloat(b)
		return ok && na == nb
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
