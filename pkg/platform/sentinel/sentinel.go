package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so callers can branch with errors.Is without depending on any
// concrete backend.
//
// ErrNotFound doubles as the uniform "no such row" answer: the access layer
// returns it for cross-tenant point lookups as well, so a caller cannot tell
// a forbidden row from a missing one.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
