package auth

import (
	"context"
)

// Scheme names how a caller authenticated.
type Scheme string

const (
	SchemeBearerJWT    Scheme = "bearer_jwt"
	SchemeStaticSecret Scheme = "static_secret"
)

// Credential is the identity derived from one request's headers. It is
// never persisted.
type Credential struct {
	Scheme    Scheme
	Principal string
}

// credentialKey is the key type for storing a Credential in context.Context.
type credentialKey struct{}

// WithCredential returns a new context with the Credential attached.
func WithCredential(ctx context.Context, c Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, c)
}

// FromContext retrieves the Credential from the context.
func FromContext(ctx context.Context) (Credential, bool) {
	c, ok := ctx.Value(credentialKey{}).(Credential)
	return c, ok
}
