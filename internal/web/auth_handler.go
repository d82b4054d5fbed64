package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iabot/core-gateway/internal/auth"
)

// handleLogin handles POST /auth/token. It takes the OAuth2 password form
// (username, password) and returns {access_token, token_type}.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	tok, err := s.issuer.Issue(r.Context(), username, password)
	if errors.Is(err, auth.ErrUnauthorized) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if err != nil {
		s.log.Error("token issuance failed", "user", username, "err", err)
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.log.Info("token issued", "user", username)
	writeJSON(w, http.StatusOK, tok)
}
