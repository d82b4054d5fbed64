package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIKeyHeader carries the static secret for callers that do not use the
// Authorization header.
const APIKeyHeader = "X-API-KEY"

var (
	// ErrUnauthorized is wrapped by every credential failure.
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMissingCredentials  = fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid or expired credentials", ErrUnauthorized)
	ErrSecretNotConfigured = fmt.Errorf("%w: static secret is not configured", ErrUnauthorized)
)

// StaticSecret is the single shared credential used by non-interactive
// callers. The zero value matches nothing.
type StaticSecret string

// Matches compares v to the secret in constant time.
func (s StaticSecret) Matches(v string) bool {
	if s == "" || v == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v), []byte(s)) == 1
}

// presented is what a request carried in its credential headers.
type presented struct {
	bearer string
	apiKey string
}

func readHeaders(r *http.Request) presented {
	var p presented
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		p.bearer = strings.TrimSpace(token)
	}
	p.apiKey = strings.TrimSpace(r.Header.Get(APIKeyHeader))
	return p
}

func (p presented) empty() bool {
	return p.bearer == "" && p.apiKey == ""
}

// Gate checks request credentials against the two supported schemes.
type Gate struct {
	verifier TokenVerifier
	secret   StaticSecret
}

// NewGate creates a Gate. verifier may be nil, in which case only the static
// secret is ever accepted.
func NewGate(verifier TokenVerifier, secret string) *Gate {
	return &Gate{verifier: verifier, secret: StaticSecret(secret)}
}

// Authenticate accepts the request if either a valid JWT or the static
// secret is presented.
func (g *Gate) Authenticate(r *http.Request) (Credential, error) {
	p := readHeaders(r)
	if p.empty() {
		return Credential{}, ErrMissingCredentials
	}
	if c, ok := g.matchSecret(p); ok {
		return c, nil
	}
	if p.bearer != "" && g.verifier != nil {
		if sub, err := g.verifier.Verify(p.bearer); err == nil {
			return Credential{Scheme: SchemeBearerJWT, Principal: sub}, nil
		}
	}
	return Credential{}, ErrInvalidCredentials
}

// AuthenticateSecret accepts the request only if the static secret is
// presented. A JWT is rejected here even when it is valid.
func (g *Gate) AuthenticateSecret(r *http.Request) (Credential, error) {
	if g.secret == "" {
		return Credential{}, ErrSecretNotConfigured
	}
	p := readHeaders(r)
	if p.empty() {
		return Credential{}, ErrMissingCredentials
	}
	if c, ok := g.matchSecret(p); ok {
		return c, nil
	}
	return Credential{}, ErrInvalidCredentials
}

func (g *Gate) matchSecret(p presented) (Credential, bool) {
	if g.secret.Matches(p.bearer) || g.secret.Matches(p.apiKey) {
		return Credential{Scheme: SchemeStaticSecret, Principal: "api-key"}, true
	}
	return Credential{}, false
}

// DenyFunc writes the rejection for a failed authentication.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireJWTOrSecret guards next with Authenticate.
func (g *Gate) RequireJWTOrSecret(deny DenyFunc, next http.HandlerFunc) http.HandlerFunc {
	return g.guard(g.Authenticate, deny, next)
}

// RequireSecret guards next with AuthenticateSecret.
func (g *Gate) RequireSecret(deny DenyFunc, next http.HandlerFunc) http.HandlerFunc {
	return g.guard(g.AuthenticateSecret, deny, next)
}

func (g *Gate) guard(check func(*http.Request) (Credential, error), deny DenyFunc, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := check(r)
		if err != nil {
			deny(w, r, err)
			return
		}
		next(w, r.WithContext(WithCredential(r.Context(), cred)))
	}
}
