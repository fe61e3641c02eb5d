package auth

import "context"

type contextKey string

const claimsContextKey contextKey = "gateway_auth_claims"

// Claims is what a validated bearer token resolves to. TeacherID is the
// one field the rest of the gateway actually depends on; Subject/Role are
// carried through for logging and future authorization rules.
type Claims struct {
	Subject   string
	TeacherID string
	Role      string
	Custom    map[string]any
}

// ContextWithClaims returns a context carrying the validated claims.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// ClaimsFromContext returns the claims stored by the auth middleware, or
// nil if the request was never authenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsContextKey).(*Claims)
	return c
}
