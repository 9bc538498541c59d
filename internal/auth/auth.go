package auth

// Authorizer resolves a bearer token to the owning user. Credential issuance
// happens elsewhere; the backend only verifies.
type Authorizer interface {
	UserIDForToken(token string) (string, bool)
}
