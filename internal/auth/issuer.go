package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iabot/core-gateway/internal/db"
)

// ErrBadCredentials is returned by Issue for an unknown user, a disabled
// user or a wrong password.
var ErrBadCredentials = fmt.Errorf("%w: incorrect username or password", ErrUnauthorized)

// UserStore looks up login accounts.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*db.User, error)
}

// Token is the body returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Issuer exchanges a username and password for an access token.
type Issuer struct {
	users    UserStore
	verifier *JWTVerifier
	ttl      time.Duration
}

// NewIssuer creates an Issuer whose tokens live for ttl.
func NewIssuer(users UserStore, verifier *JWTVerifier, ttl time.Duration) *Issuer {
	return &Issuer{users: users, verifier: verifier, ttl: ttl}
}

// dummyHash is compared against when the user does not exist so lookups of
// unknown names cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// Issue checks the password and returns a signed token for username.
func (i *Issuer) Issue(ctx context.Context, username, password string) (Token, error) {
	if username == "" || password == "" {
		return Token{}, ErrBadCredentials
	}
	u, err := i.users.GetUser(ctx, username)
	if err != nil {
		return Token{}, fmt.Errorf("look up user: %w", err)
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Token{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Token{}, ErrBadCredentials
	}
	if u.Disabled {
		return Token{}, ErrBadCredentials
	}

	signed, err := i.verifier.Generate(u.Username, i.ttl)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "bearer"}, nil
}

// HashPassword returns the bcrypt hash stored for a new password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
