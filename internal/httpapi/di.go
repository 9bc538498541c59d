package httpapi

import (
	"github.com/focuslab/focusguard/internal/auth"
	"github.com/focuslab/focusguard/internal/config"
	"github.com/focuslab/focusguard/internal/session"
	"github.com/focuslab/focusguard/internal/stats"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewHub(cfg.BroadcastThrottle), nil
	})
	do.Provide(injector, func(i do.Injector) (session.ActivityPublisher, error) {
		return do.MustInvoke[*Hub](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		authorizer := do.MustInvoke[auth.Authorizer](i)
		sessions := do.MustInvoke[*session.Service](i)
		statsService := do.MustInvoke[*stats.Service](i)
		hub := do.MustInvoke[*Hub](i)
		return NewServer(authorizer, sessions, statsService, hub), nil
	})
}
