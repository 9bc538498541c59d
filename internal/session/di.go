package session

import (
	"github.com/focuslab/focusguard/internal/config"
	"github.com/focuslab/focusguard/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		publisher := do.MustInvoke[ActivityPublisher](i)
		return NewService(repo, publisher, cfg.AnalysisInterval), nil
	})
}
