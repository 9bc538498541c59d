package agent

import (
	"github.com/focuslab/focusguard/internal/api"
	"github.com/focuslab/focusguard/internal/engine"
	"github.com/focuslab/focusguard/internal/state"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*state.Store, error) {
		return state.NewStore(), nil
	})

	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		client := do.MustInvoke[api.Client](i)
		supervisor := do.MustInvoke[engine.Supervisor](i)
		store := do.MustInvoke[*state.Store](i)
		cfg := do.MustInvoke[*Config](i)
		hooks := do.MustInvoke[Hooks](i)
		return NewController(client, supervisor, store, cfg, hooks), nil
	})
}
