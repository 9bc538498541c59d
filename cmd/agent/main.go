package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiclientimpl "github.com/focuslab/focusguard/external/apiclient"
	engineimpl "github.com/focuslab/focusguard/external/engine"
	"github.com/focuslab/focusguard/internal/agent"
	"github.com/focuslab/focusguard/internal/api"
	"github.com/focuslab/focusguard/internal/state"
	"github.com/samber/do/v2"
)

const requestTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "agent.yaml", "path to the agent configuration file")
	stopStale := flag.Bool("stop-stale", false, "close a session left open by a previous run before starting")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := agent.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("startup: configuration loaded", "backend_url", cfg.BackendURL)

	authFailed := make(chan struct{}, 1)
	hooks := agent.Hooks{
		OnStatus: func(activity *api.ActivityPayload) {
			slog.Info("live status",
				"service", activity.Service,
				"productivity", activity.Productivity,
				"reason", activity.Reason)
		},
		OnAuthFailure: func() {
			select {
			case authFailed <- struct{}{}:
			default:
			}
		},
	}

	injector := setupDI(cfg, hooks)

	store := do.MustInvoke[*state.Store](injector)
	store.Subscribe(func(snap state.Snapshot) {
		slog.Info("engine state changed", "phase", snap.Phase.String(), "session_id", snap.ActiveSessionID)
	})

	ctrl := do.MustInvoke[*agent.Controller](injector)
	run(ctrl, *stopStale, authFailed)
}

func setupDI(cfg *agent.Config, hooks agent.Hooks) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, hooks)
	apiclientimpl.RegisterDI(injector)
	engineimpl.RegisterDI(injector)
	agent.RegisterDI(injector)

	return injector
}

func run(ctrl *agent.Controller, stopStale bool, authFailed <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	stale, err := ctrl.CheckStaleSession(ctx)
	cancel()
	if err != nil {
		slog.Error("failed to check for a stale session", "error", err)
		os.Exit(1)
	}
	if stale != nil {
		if !stopStale {
			slog.Error("a previous session is still open, rerun with -stop-stale to close it",
				"session_id", stale.ID, "started_at", stale.StartTime)
			os.Exit(1)
		}
		slog.Warn("closing stale session", "session_id", stale.ID)
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err := ctrl.StopStaleSession(ctx, stale.ID)
		cancel()
		if err != nil {
			slog.Error("failed to close stale session", "session_id", stale.ID, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), requestTimeout)
	err = ctrl.StartTracking(ctx)
	cancel()
	if err != nil {
		slog.Error("failed to start tracking", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-authFailed:
		slog.Error("access token rejected, shutting down")
	}

	ctx, cancel = context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := ctrl.StopTracking(ctx); err != nil {
		slog.Error("failed to stop tracking cleanly", "error", err)
		os.Exit(1)
	}
}
