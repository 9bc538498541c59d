package auth

import (
	"github.com/focuslab/focusguard/internal/auth"
)

// StaticAuthorizer resolves tokens from a fixed map loaded at startup.
type StaticAuthorizer struct {
	tokens map[string]string
}

func NewStaticAuthorizer(tokens map[string]string) auth.Authorizer {
	copied := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		copied[token] = userID
	}
	return &StaticAuthorizer{tokens: copied}
}

func (a *StaticAuthorizer) UserIDForToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	userID, ok := a.tokens[token]
	return userID, ok
}
