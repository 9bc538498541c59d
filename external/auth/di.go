package auth

import (
	"github.com/focuslab/focusguard/internal/auth"
	"github.com/focuslab/focusguard/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (auth.Authorizer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewStaticAuthorizer(cfg.AccessTokens), nil
	})
}
