package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "machine-secret"

func newTestGate(t *testing.T) (*Gate, string) {
	t.Helper()
	v := NewJWTVerifier(testKey)
	tok, err := v.Generate("alice", 30*time.Minute)
	require.NoError(t, err)
	return NewGate(v, testSecret), tok
}

func requestWith(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/llm/chat", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestStaticSecretMatches(t *testing.T) {
	require.True(t, StaticSecret("abc").Matches("abc"))
	require.False(t, StaticSecret("abc").Matches("abcd"))
	require.False(t, StaticSecret("abc").Matches(""))
	require.False(t, StaticSecret("").Matches(""), "an unset secret never matches")
}

func TestAuthenticateAcceptsEitherScheme(t *testing.T) {
	g, jwtTok := newTestGate(t)

	cases := []struct {
		name    string
		headers map[string]string
		scheme  Scheme
		who     string
	}{
		{"jwt bearer", map[string]string{"Authorization": "Bearer " + jwtTok}, SchemeBearerJWT, "alice"},
		{"secret bearer", map[string]string{"Authorization": "Bearer " + testSecret}, SchemeStaticSecret, "api-key"},
		{"secret header", map[string]string{APIKeyHeader: testSecret}, SchemeStaticSecret, "api-key"},
		{"lowercase scheme", map[string]string{"Authorization": "bearer " + jwtTok}, SchemeBearerJWT, "alice"},
		{"uppercase scheme", map[string]string{"Authorization": "BEARER " + testSecret}, SchemeStaticSecret, "api-key"},
		{"bad api key but good jwt", map[string]string{APIKeyHeader: "nope", "Authorization": "Bearer " + jwtTok}, SchemeBearerJWT, "alice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cred, err := g.Authenticate(requestWith(tc.headers))
			require.NoError(t, err)
			require.Equal(t, tc.scheme, cred.Scheme)
			require.Equal(t, tc.who, cred.Principal)
		})
	}
}

func TestAuthenticateRejects(t *testing.T) {
	g, _ := newTestGate(t)
	expired, err := NewJWTVerifier(testKey).Generate("alice", -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name    string
		headers map[string]string
		want    error
	}{
		{"nothing", nil, ErrMissingCredentials},
		{"basic auth", map[string]string{"Authorization": "Basic YWxpY2U6cHc="}, ErrMissingCredentials},
		{"wrong secret", map[string]string{APIKeyHeader: "guess"}, ErrInvalidCredentials},
		{"garbage bearer", map[string]string{"Authorization": "Bearer garbage"}, ErrInvalidCredentials},
		{"expired jwt", map[string]string{"Authorization": "Bearer " + expired}, ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Authenticate(requestWith(tc.headers))
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestAuthenticateSecretRejectsJWT(t *testing.T) {
	g, jwtTok := newTestGate(t)

	_, err := g.AuthenticateSecret(requestWith(map[string]string{"Authorization": "Bearer " + jwtTok}))
	require.ErrorIs(t, err, ErrInvalidCredentials)

	cred, err := g.AuthenticateSecret(requestWith(map[string]string{"Authorization": "Bearer " + testSecret}))
	require.NoError(t, err)
	require.Equal(t, SchemeStaticSecret, cred.Scheme)

	_, err = g.AuthenticateSecret(requestWith(map[string]string{APIKeyHeader: testSecret}))
	require.NoError(t, err)
}

func TestAuthenticateSecretUnconfigured(t *testing.T) {
	g := NewGate(NewJWTVerifier(testKey), "")
	_, err := g.AuthenticateSecret(requestWith(map[string]string{APIKeyHeader: ""}))
	require.ErrorIs(t, err, ErrSecretNotConfigured)

	// With no secret configured the core gate still accepts JWTs.
	tok, _ := NewJWTVerifier(testKey).Generate("bob", time.Minute)
	cred, err := g.Authenticate(requestWith(map[string]string{"Authorization": "Bearer " + tok}))
	require.NoError(t, err)
	require.Equal(t, "bob", cred.Principal)
}

func TestGuardShortCircuits(t *testing.T) {
	g, jwtTok := newTestGate(t)

	var called bool
	var seen Credential
	next := func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
	var denied error
	deny := func(w http.ResponseWriter, r *http.Request, err error) {
		denied = err
		w.WriteHeader(http.StatusUnauthorized)
	}

	h := g.RequireJWTOrSecret(deny, next)

	w := httptest.NewRecorder()
	h(w, requestWith(nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, called, "handler must not run when auth fails")
	require.True(t, errors.Is(denied, ErrMissingCredentials))

	w = httptest.NewRecorder()
	h(w, requestWith(map[string]string{"Authorization": "Bearer " + jwtTok}))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, called)
	require.Equal(t, Credential{Scheme: SchemeBearerJWT, Principal: "alice"}, seen)

	called = false
	w = httptest.NewRecorder()
	g.RequireSecret(deny, next)(w, requestWith(map[string]string{"Authorization": "Bearer " + jwtTok}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, called)
}
