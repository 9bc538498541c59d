package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/focuslab/focusguard/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	ProductiveLabel   = "Productive"
	UnproductiveLabel = "Unproductive"

	// Sentinel values served while no data point has arrived yet.
	InitializingService = "Initializing..."
	InitializingLabel   = "Analyzing..."
	InitializingReason  = "Waiting for first data point..."
)

// IngestInput mirrors the engine's report payload. Pointer fields distinguish
// an absent key from a zero value.
type IngestInput struct {
	Focus    *bool
	AppName  string
	Activity *string
}

type LifetimeStats struct {
	TotalFocusSeconds       int64
	TotalDistractionSeconds int64
	AppUsage                map[string]int64
}

// ActivityPublisher receives each accepted data point's activity snapshot.
type ActivityPublisher interface {
	PublishActivity(userID string, activity repository.Activity)
}

// Service owns the per-user session state machine. All operations are safe for
// concurrent callers; the at-most-one-open-session invariant is backed by the
// repository's conditional writes.
type Service struct {
	repo      repository.Repository
	publisher ActivityPublisher
	interval  time.Duration
}

func NewService(repo repository.Repository, publisher ActivityPublisher, interval time.Duration) *Service {
	return &Service{repo: repo, publisher: publisher, interval: interval}
}

// Start closes any session left open for the user, then creates a fresh
// placeholder row. The placeholder's start time is provisional; Activate
// re-stamps it once the engine confirms readiness.
func (s *Service) Start(ctx context.Context, userID string) (*repository.Session, error) {
	stale, err := s.repo.GetOpenSessionByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open session: %w", err)
	}
	if stale != nil {
		if _, err := s.repo.UpdateSessionCompleted(ctx, repository.CompleteSessionInput{
			SessionID: stale.ID,
			UserID:    userID,
			EndedAt:   time.Now(),
		}); err != nil {
			return nil, fmt.Errorf("failed to terminate stale session: %w", err)
		}
		slog.Warn("found and automatically terminated a stale session", "session_id", stale.ID, "user_id", userID)
	}

	created, err := s.repo.CreateSession(ctx, repository.CreateSessionInput{
		UserID:    userID,
		StartedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenSession) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, userID)
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("created a fresh session", "session_id", created.ID, "user_id", userID)
	return created, nil
}

// Activate re-stamps the open session's start time to now, so elapsed-time
// displays measure from actual engine readiness rather than placeholder
// creation.
func (s *Service) Activate(ctx context.Context, sessionID, userID string) (*repository.Session, error) {
	updated, err := s.repo.UpdateSessionActivated(ctx, sessionID, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to activate session: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	slog.Info("session activated", "session_id", sessionID, "user_id", userID)
	return updated, nil
}

// Ingest folds one engine report into the open session and the user's
// lifetime totals. The two writes are issued concurrently and are not
// transactional; a crash between them diverges the totals by at most one
// increment.
func (s *Service) Ingest(ctx context.Context, sessionID, userID string, input IngestInput) error {
	if input.Focus == nil || input.AppName == "" || input.Activity == nil {
		return ErrValidation
	}
	focus := *input.Focus

	sess, err := s.repo.GetSessionByID(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if sess == nil || !sess.IsOpen() {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	increment := int64(s.interval / time.Second)
	appKey := SanitizeAppKey(input.AppName)
	activity := repository.Activity{
		Service:      input.AppName,
		Productivity: productivityLabel(focus),
		Reason:       *input.Activity,
		Timestamp:    time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matched, err := s.repo.ApplySessionIncrement(gctx, repository.SessionIncrementInput{
			SessionID:        sessionID,
			UserID:           userID,
			Focus:            focus,
			AppKey:           appKey,
			IncrementSeconds: increment,
			Activity:         activity,
		})
		if err != nil {
			return fmt.Errorf("failed to update session accumulators: %w", err)
		}
		if !matched {
			// Session was stopped between the lookup and the write.
			return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.repo.ApplyUserIncrement(gctx, repository.UserIncrementInput{
			UserID:           userID,
			Focus:            focus,
			AppKey:           appKey,
			IncrementSeconds: increment,
		}); err != nil {
			return fmt.Errorf("failed to update lifetime accumulators: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Debug("data point processed", "session_id", sessionID, "focus", focus, "app", appKey)
	if s.publisher != nil {
		s.publisher.PublishActivity(userID, activity)
	}
	return nil
}

// Stop finalizes the open session. An already-stopped session is reported as
// ErrNotFound, indistinguishable from one that never existed.
func (s *Service) Stop(ctx context.Context, sessionID, userID string) (*repository.Session, error) {
	updated, err := s.repo.UpdateSessionCompleted(ctx, repository.CompleteSessionInput{
		SessionID: sessionID,
		UserID:    userID,
		EndedAt:   time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	slog.Info("session stopped", "session_id", sessionID, "user_id", userID)
	return updated, nil
}

// LiveStatus returns the open session's latest activity. While no data point
// has arrived it synthesizes a placeholder rather than failing; ErrNotFound
// means no session is open at all.
func (s *Service) LiveStatus(ctx context.Context, userID string) (*repository.Activity, error) {
	sess, err := s.repo.GetOpenSessionByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w for user %s", ErrNotFound, userID)
	}
	if la := sess.LatestActivity; la != nil && la.Service != "" && la.Service != InitializingService {
		return la, nil
	}
	return &repository.Activity{
		Service:      InitializingService,
		Productivity: InitializingLabel,
		Reason:       InitializingReason,
		Timestamp:    time.Now(),
	}, nil
}

// Current returns the user's single open session.
func (s *Service) Current(ctx context.Context, userID string) (*repository.Session, error) {
	sess, err := s.repo.GetOpenSessionByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w for user %s", ErrNotFound, userID)
	}
	return sess, nil
}

// ByID returns one session owned by the user, open or closed.
func (s *Service) ByID(ctx context.Context, sessionID, userID string) (*repository.Session, error) {
	sess, err := s.repo.GetSessionByID(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return sess, nil
}

// History lists all of the user's sessions, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]repository.Session, error) {
	list, err := s.repo.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return list, nil
}

// Lifetime returns the user's lifetime totals with display app names. A user
// with no recorded data yields zero totals, not an error.
func (s *Service) Lifetime(ctx context.Context, userID string) (*LifetimeStats, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return &LifetimeStats{AppUsage: map[string]int64{}}, nil
	}
	return &LifetimeStats{
		TotalFocusSeconds:       user.TotalFocusSeconds,
		TotalDistractionSeconds: user.TotalDistractionSeconds,
		AppUsage:                RestoreAppUsage(user.AppUsage),
	}, nil
}

func productivityLabel(focus bool) string {
	if focus {
		return ProductiveLabel
	}
	return UnproductiveLabel
}
