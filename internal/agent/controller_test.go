package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/focuslab/focusguard/internal/api"
	"github.com/focuslab/focusguard/internal/engine"
	"github.com/focuslab/focusguard/internal/state"
)

type mockClient struct {
	mu sync.Mutex

	startErr    error
	activateErr error
	stopErr     error
	currentErr  error
	liveErr     error

	currentSession *api.SessionPayload
	liveActivity   *api.ActivityPayload

	startCalls    int
	activateCalls []string
	stopCalls     []string
}

func (m *mockClient) StartSession(context.Context) (*api.SessionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if m.startErr != nil {
		return nil, m.startErr
	}
	return &api.SessionPayload{ID: "session-1", UserID: "user-1"}, nil
}

func (m *mockClient) ActivateSession(_ context.Context, sessionID string) (*api.SessionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activateCalls = append(m.activateCalls, sessionID)
	if m.activateErr != nil {
		return nil, m.activateErr
	}
	return &api.SessionPayload{ID: sessionID}, nil
}

func (m *mockClient) StopSession(_ context.Context, sessionID string) (*api.SessionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls = append(m.stopCalls, sessionID)
	if m.stopErr != nil {
		return nil, m.stopErr
	}
	return &api.SessionPayload{ID: sessionID}, nil
}

func (m *mockClient) CurrentSession(context.Context) (*api.SessionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentErr != nil {
		return nil, m.currentErr
	}
	return m.currentSession, nil
}

func (m *mockClient) LiveStatus(context.Context) (*api.ActivityPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liveErr != nil {
		return nil, m.liveErr
	}
	return m.liveActivity, nil
}

func (m *mockClient) stoppedSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stopCalls...)
}

type mockSupervisor struct {
	mu sync.Mutex

	startErr error
	handler  func(engine.Event)

	started [][2]string
	stops   int
}

func (m *mockSupervisor) Start(sessionID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, [2]string{sessionID, token})
	return nil
}

func (m *mockSupervisor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *mockSupervisor) RegisterEventHandler(fn func(engine.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

func (m *mockSupervisor) emit(ev engine.Event) {
	m.mu.Lock()
	fn := m.handler
	m.mu.Unlock()
	fn(ev)
}

func (m *mockSupervisor) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func newTestController(client *mockClient, supervisor *mockSupervisor, hooks Hooks) (*Controller, *state.Store) {
	store := state.NewStore()
	cfg := &Config{
		AccessToken:  "token-1",
		PollInterval: 10 * time.Millisecond,
	}
	return NewController(client, supervisor, store, cfg, hooks), store
}

func TestStartTracking_OpensSessionAndSpawnsEngine(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{}
	ctrl, store := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}

	if client.startCalls != 1 {
		t.Errorf("expected one start call, got %d", client.startCalls)
	}
	if len(supervisor.started) != 1 || supervisor.started[0] != [2]string{"session-1", "token-1"} {
		t.Errorf("unexpected supervisor start args: %v", supervisor.started)
	}
	snap := store.State()
	if snap.Phase != state.PhaseInitializing || snap.ActiveSessionID != "session-1" {
		t.Errorf("unexpected store state: %+v", snap)
	}
}

func TestStartTracking_WhileActiveIsNoOp(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{}
	ctrl, _ := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("second start must be a no-op, got %v", err)
	}
	if client.startCalls != 1 {
		t.Errorf("expected one backend session, got %d start calls", client.startCalls)
	}
}

func TestStartTracking_AuthFailureFiresHook(t *testing.T) {
	client := &mockClient{startErr: api.ErrUnauthorized}
	supervisor := &mockSupervisor{}
	authFailures := 0
	ctrl, _ := newTestController(client, supervisor, Hooks{
		OnAuthFailure: func() { authFailures++ },
	})

	if err := ctrl.StartTracking(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if authFailures != 1 {
		t.Errorf("expected auth failure hook, got %d calls", authFailures)
	}
	if len(supervisor.started) != 0 {
		t.Error("engine must not start after auth failure")
	}
}

func TestStartTracking_SpawnFailureClosesSession(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{startErr: errors.New("binary not found")}
	ctrl, store := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err == nil {
		t.Fatal("expected spawn error")
	}
	if stopped := client.stoppedSessions(); len(stopped) != 1 || stopped[0] != "session-1" {
		t.Errorf("expected the session closed after spawn failure, got %v", stopped)
	}
	if store.State().Phase != state.PhaseNotRunning {
		t.Error("store must be cleared after spawn failure")
	}
}

func TestEngineReady_ActivatesSession(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{}
	ctrl, store := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	supervisor.emit(engine.EventReady)
	defer ctrl.StopTracking(context.Background())

	if len(client.activateCalls) != 1 || client.activateCalls[0] != "session-1" {
		t.Errorf("expected activation of session-1, got %v", client.activateCalls)
	}
	if store.State().Phase != state.PhaseRunning {
		t.Errorf("expected running, got %v", store.State().Phase)
	}
}

func TestEngineReady_ActivateAuthFailureStopsEngine(t *testing.T) {
	client := &mockClient{activateErr: api.ErrUnauthorized}
	supervisor := &mockSupervisor{}
	authFailures := 0
	ctrl, store := newTestController(client, supervisor, Hooks{
		OnAuthFailure: func() { authFailures++ },
	})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	supervisor.emit(engine.EventReady)

	if supervisor.stopCount() != 1 {
		t.Errorf("expected engine stop after auth failure, got %d", supervisor.stopCount())
	}
	if authFailures != 1 {
		t.Errorf("expected auth failure hook, got %d", authFailures)
	}
	if store.State().Phase != state.PhaseNotRunning {
		t.Error("store must be cleared after auth failure")
	}
}

func TestEngineStopped_DuringInitializingClearsState(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{}
	ctrl, store := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	supervisor.emit(engine.EventStopped)

	if store.State().Phase != state.PhaseNotRunning {
		t.Errorf("expected cleared state, got %v", store.State().Phase)
	}
}

func TestStopTracking_StopsEngineAndSession(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{}
	ctrl, store := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	if err := ctrl.StopTracking(context.Background()); err != nil {
		t.Fatalf("stop tracking failed: %v", err)
	}

	if supervisor.stopCount() != 1 {
		t.Errorf("expected one engine stop, got %d", supervisor.stopCount())
	}
	if stopped := client.stoppedSessions(); len(stopped) != 1 || stopped[0] != "session-1" {
		t.Errorf("expected session-1 stopped, got %v", stopped)
	}
	if store.State().Phase != state.PhaseNotRunning {
		t.Error("store must be cleared after stop")
	}
}

func TestStopTracking_AlreadyClosedSessionIsBenign(t *testing.T) {
	client := &mockClient{stopErr: api.ErrNotFound}
	supervisor := &mockSupervisor{}
	ctrl, _ := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	if err := ctrl.StopTracking(context.Background()); err != nil {
		t.Fatalf("stop of an already closed session must succeed, got %v", err)
	}
}

func TestStopTracking_IdleIsNoOp(t *testing.T) {
	client := &mockClient{}
	supervisor := &mockSupervisor{}
	ctrl, _ := newTestController(client, supervisor, Hooks{})

	if err := ctrl.StopTracking(context.Background()); err != nil {
		t.Fatalf("idle stop must be a no-op, got %v", err)
	}
	if supervisor.stopCount() != 0 || len(client.stoppedSessions()) != 0 {
		t.Error("idle stop must not touch the engine or backend")
	}
}

func TestCheckStaleSession(t *testing.T) {
	t.Run("no open session", func(t *testing.T) {
		client := &mockClient{currentErr: api.ErrNotFound}
		ctrl, _ := newTestController(client, &mockSupervisor{}, Hooks{})

		session, err := ctrl.CheckStaleSession(context.Background())
		if err != nil || session != nil {
			t.Fatalf("expected nil, nil, got %v, %v", session, err)
		}
	})

	t.Run("leftover session reported", func(t *testing.T) {
		client := &mockClient{currentSession: &api.SessionPayload{ID: "session-9"}}
		ctrl, _ := newTestController(client, &mockSupervisor{}, Hooks{})

		session, err := ctrl.CheckStaleSession(context.Background())
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if session == nil || session.ID != "session-9" {
			t.Fatalf("expected session-9, got %+v", session)
		}
	})
}

func TestPolling_DeliversLiveStatus(t *testing.T) {
	statusCh := make(chan *api.ActivityPayload, 1)
	client := &mockClient{
		liveActivity: &api.ActivityPayload{Service: "Code.exe", Productivity: "Productive"},
	}
	supervisor := &mockSupervisor{}
	ctrl, _ := newTestController(client, supervisor, Hooks{
		OnStatus: func(activity *api.ActivityPayload) {
			select {
			case statusCh <- activity:
			default:
			}
		},
	})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	supervisor.emit(engine.EventReady)
	defer ctrl.StopTracking(context.Background())

	select {
	case activity := <-statusCh:
		if activity.Service != "Code.exe" {
			t.Fatalf("unexpected activity: %+v", activity)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live status")
	}
}

func TestPolling_UnauthorizedForcesLogout(t *testing.T) {
	authCh := make(chan struct{}, 1)
	client := &mockClient{liveErr: api.ErrUnauthorized}
	supervisor := &mockSupervisor{}
	ctrl, store := newTestController(client, supervisor, Hooks{
		OnAuthFailure: func() {
			select {
			case authCh <- struct{}{}:
			default:
			}
		},
	})

	if err := ctrl.StartTracking(context.Background()); err != nil {
		t.Fatalf("start tracking failed: %v", err)
	}
	supervisor.emit(engine.EventReady)

	select {
	case <-authCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth failure")
	}
	if supervisor.stopCount() == 0 {
		t.Error("engine must stop after token rejection")
	}
	if store.State().Phase != state.PhaseNotRunning {
		t.Error("store must be cleared after token rejection")
	}
}
