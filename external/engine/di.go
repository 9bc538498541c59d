package engine

import (
	"github.com/focuslab/focusguard/internal/agent"
	"github.com/focuslab/focusguard/internal/engine"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (engine.Indicator, error) {
		return NewLogIndicator(), nil
	})
	do.Provide(injector, func(i do.Injector) (engine.Supervisor, error) {
		cfg := do.MustInvoke[*agent.Config](i)
		indicator := do.MustInvoke[engine.Indicator](i)
		return NewProcessSupervisor(cfg.EngineCommand, cfg.StopGracePeriod, indicator), nil
	})
}
