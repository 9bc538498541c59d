package apiclient

import (
	"github.com/focuslab/focusguard/internal/agent"
	"github.com/focuslab/focusguard/internal/api"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (api.Client, error) {
		cfg := do.MustInvoke[*agent.Config](i)
		return NewHTTPClient(cfg.BackendURL, cfg.AccessToken), nil
	})
}
