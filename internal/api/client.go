package api

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized reports a rejected access token. The agent responds by
	// stopping the engine and forcing logout.
	ErrUnauthorized = errors.New("access token rejected")
	// ErrNotFound reports a missing open session. Benign while polling around
	// a session boundary.
	ErrNotFound = errors.New("no matching open session")
	// ErrValidation reports a payload the backend refused.
	ErrValidation = errors.New("backend rejected the payload")
)

// Client is the backend surface the desktop agent depends on.
type Client interface {
	StartSession(ctx context.Context) (*SessionPayload, error)
	ActivateSession(ctx context.Context, sessionID string) (*SessionPayload, error)
	StopSession(ctx context.Context, sessionID string) (*SessionPayload, error)
	CurrentSession(ctx context.Context) (*SessionPayload, error)
	LiveStatus(ctx context.Context) (*ActivityPayload, error)
}
