package repository

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateOpenSession reports a violated one-open-session-per-user
// constraint, surfaced when two concurrent starts race each other.
var ErrDuplicateOpenSession = errors.New("user already has an open session")

type CreateSessionInput struct {
	UserID    string
	StartedAt time.Time
}

type CompleteSessionInput struct {
	SessionID string
	UserID    string
	EndedAt   time.Time
}

// SessionIncrementInput carries one analysis interval's worth of accumulation.
// AppKey must already be sanitized for use as a mapping key.
type SessionIncrementInput struct {
	SessionID        string
	UserID           string
	Focus            bool
	AppKey           string
	IncrementSeconds int64
	Activity         Activity
}

type UserIncrementInput struct {
	UserID           string
	Focus            bool
	AppKey           string
	IncrementSeconds int64
}

type SessionRepository interface {
	// CreateSession inserts a new open session row. Returns
	// ErrDuplicateOpenSession when the user already has one.
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	// GetOpenSessionByUser returns the user's open session, or nil when none.
	GetOpenSessionByUser(ctx context.Context, userID string) (*Session, error)
	// GetSessionByID returns the session owned by userID, or nil when absent.
	GetSessionByID(ctx context.Context, sessionID, userID string) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]Session, error)
	// UpdateSessionActivated re-stamps started_at on the open session and
	// returns the updated row, or nil when no matching open session exists.
	UpdateSessionActivated(ctx context.Context, sessionID, userID string, startedAt time.Time) (*Session, error)
	// UpdateSessionCompleted sets ended_at on the open session and returns the
	// updated row, or nil when no matching open session exists.
	UpdateSessionCompleted(ctx context.Context, input CompleteSessionInput) (*Session, error)
	// ApplySessionIncrement folds one data point into the open session's
	// accumulators and latest activity. Returns false when no matching open
	// session exists.
	ApplySessionIncrement(ctx context.Context, input SessionIncrementInput) (bool, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	// ApplyUserIncrement folds one data point into the user's lifetime
	// accumulators, creating the row on first contact.
	ApplyUserIncrement(ctx context.Context, input UserIncrementInput) error
}

type StatsRepository interface {
	DailyTotals(ctx context.Context, userID string, since time.Time) ([]DailyTotalsRow, error)
	AppUsageTotals(ctx context.Context, userID string, since time.Time) ([]AppUsageTotalsRow, error)
}

type Repository interface {
	SessionRepository
	UserRepository
	StatsRepository
}
