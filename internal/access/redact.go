package access

import "nucleo/internal/store"

// RedactionMarker replaces every sensitive value before a snapshot is diffed
// or persisted. The replacement is irreversible; a marker can never be
// mistaken for a real credential.
const RedactionMarker = "[REDACTED]"

// sensitiveFields are top-level field names that must never appear unredacted
// in an audit record. Because both snapshots are redacted before diffing, a
// change limited to one of these fields is invisible to the diff.
var sensitiveFields = map[string]struct{}{
	"password":        {},
	"passwordHash":    {},
	"currentPassword": {},
	"newPassword":     {},
	"token":           {},
	"accessToken":     {},
	"refreshToken":    {},
	"secret":          {},
	"clientSecret":    {},
	"apiKey":          {},
	"privateKey":      {},
	"certificate":     {},
}

// IsSensitive reports whether a field name is in the sensitive set.
func IsSensitive(field string) bool {
	_, ok := sensitiveFields[field]
	return ok
}

// redactSnapshot copies a record with every sensitive value replaced by the
// marker. Nil in, nil out, so "no snapshot" survives redaction.
func redactSnapshot(rec store.Record) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec.Clone() {
		if IsSensitive(k) {
			out[k] = RedactionMarker
			continue
		}
		out[k] = v
	}
	return out
}
