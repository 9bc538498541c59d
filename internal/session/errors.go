package session

import "errors"

var (
	// ErrNotFound reports a session that does not exist, is not owned by the
	// caller, or is no longer open. Callers cannot distinguish these cases.
	ErrNotFound = errors.New("active session not found")
	// ErrValidation reports a malformed ingest payload.
	ErrValidation = errors.New("invalid analysis data payload")
	// ErrConflict reports a start that lost the one-open-session race.
	ErrConflict = errors.New("another session start is in flight")
)
