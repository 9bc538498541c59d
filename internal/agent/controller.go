package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/focuslab/focusguard/internal/api"
	"github.com/focuslab/focusguard/internal/engine"
	"github.com/focuslab/focusguard/internal/state"
)

// Hooks let the embedding process react to controller-level events without
// the controller knowing about its UI or shutdown wiring.
type Hooks struct {
	// OnStatus delivers the latest live activity while tracking is running.
	OnStatus func(activity *api.ActivityPayload)
	// OnAuthFailure fires when the backend rejects the access token. The
	// controller has already stopped the engine when this runs.
	OnAuthFailure func()
}

// Controller drives the tracking lifecycle: it opens a session on the
// backend, supervises the analysis engine, and keeps the local state store
// in agreement with both.
type Controller struct {
	client     api.Client
	supervisor engine.Supervisor
	store      *state.Store
	hooks      Hooks

	accessToken  string
	pollInterval time.Duration

	mu       sync.Mutex
	pollStop context.CancelFunc
}

func NewController(client api.Client, supervisor engine.Supervisor, store *state.Store, cfg *Config, hooks Hooks) *Controller {
	c := &Controller{
		client:       client,
		supervisor:   supervisor,
		store:        store,
		hooks:        hooks,
		accessToken:  cfg.AccessToken,
		pollInterval: cfg.PollInterval,
	}
	supervisor.RegisterEventHandler(c.handleEngineEvent)
	return c
}

// CheckStaleSession reports a session the backend still considers open.
// A previous agent run that died without stopping leaves one behind; the
// decision to close it belongs to the caller, not the controller.
func (c *Controller) CheckStaleSession(ctx context.Context) (*api.SessionPayload, error) {
	session, err := c.client.CurrentSession(ctx)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// StopStaleSession closes a leftover open session on the backend.
func (c *Controller) StopStaleSession(ctx context.Context, sessionID string) error {
	_, err := c.client.StopSession(ctx, sessionID)
	if errors.Is(err, api.ErrNotFound) {
		return nil
	}
	return err
}

// StartTracking opens a placeholder session and launches the engine against
// it. The session stays a placeholder until the engine signals readiness.
func (c *Controller) StartTracking(ctx context.Context) error {
	if c.store.State().Phase != state.PhaseNotRunning {
		slog.Warn("start tracking ignored, engine already active")
		return nil
	}

	session, err := c.client.StartSession(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			c.authFailure()
		}
		return err
	}

	c.store.Start(session.ID, c.accessToken)
	if err := c.supervisor.Start(session.ID, c.accessToken); err != nil {
		// Leave nothing half-open: the backend session closes with the
		// failed launch.
		c.store.HandleFailed()
		if _, stopErr := c.client.StopSession(ctx, session.ID); stopErr != nil && !errors.Is(stopErr, api.ErrNotFound) {
			slog.Error("failed to close session after engine spawn failure",
				"session_id", session.ID, "error", stopErr)
		}
		return err
	}

	slog.Info("tracking started", "session_id", session.ID)
	return nil
}

// StopTracking terminates the engine and closes the session. A session the
// backend already closed is not an error.
func (c *Controller) StopTracking(ctx context.Context) error {
	snapshot := c.store.State()
	if snapshot.Phase == state.PhaseNotRunning {
		slog.Info("stop tracking ignored, nothing active")
		return nil
	}

	c.supervisor.Stop()

	if snapshot.ActiveSessionID != "" {
		if _, err := c.client.StopSession(ctx, snapshot.ActiveSessionID); err != nil && !errors.Is(err, api.ErrNotFound) {
			return err
		}
	}

	c.store.Stop()
	slog.Info("tracking stopped", "session_id", snapshot.ActiveSessionID)
	return nil
}

func (c *Controller) handleEngineEvent(ev engine.Event) {
	switch ev {
	case engine.EventReady:
		c.handleReady()
	case engine.EventFailed:
		slog.Error("analysis engine reported startup failure")
		c.store.HandleFailed()
	case engine.EventStopped:
		c.handleStopped()
	}
}

func (c *Controller) handleReady() {
	snapshot := c.store.State()
	if snapshot.Phase != state.PhaseInitializing {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.client.ActivateSession(ctx, snapshot.ActiveSessionID); err != nil {
		slog.Error("failed to activate session", "session_id", snapshot.ActiveSessionID, "error", err)
		if errors.Is(err, api.ErrUnauthorized) {
			c.supervisor.Stop()
			c.authFailure()
			return
		}
	}

	c.store.HandleReady()
	c.startPolling()
}

func (c *Controller) handleStopped() {
	c.stopPolling()

	snapshot := c.store.State()
	if snapshot.Phase == state.PhaseInitializing {
		slog.Error("analysis engine exited before becoming ready",
			"session_id", snapshot.ActiveSessionID)
	}
	c.store.HandleStopped()
}

func (c *Controller) startPolling() {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.pollStop != nil {
		c.pollStop()
	}
	c.pollStop = cancel
	c.mu.Unlock()

	go c.pollLiveStatus(ctx)
}

func (c *Controller) stopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollStop != nil {
		c.pollStop()
		c.pollStop = nil
	}
}

func (c *Controller) pollLiveStatus(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		activity, err := c.client.LiveStatus(ctx)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				slog.Error("access token rejected while polling, stopping tracking")
				c.supervisor.Stop()
				c.authFailure()
				return
			}
			if errors.Is(err, api.ErrNotFound) {
				// Session boundary: the backend closed the session between
				// ticks. The stopped event cleans up shortly.
				continue
			}
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("live status poll failed", "error", err)
			continue
		}

		if c.hooks.OnStatus != nil {
			c.hooks.OnStatus(activity)
		}
	}
}

func (c *Controller) authFailure() {
	c.stopPolling()
	c.store.HandleFailed()
	if c.hooks.OnAuthFailure != nil {
		c.hooks.OnAuthFailure()
	}
}
