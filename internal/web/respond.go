package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iabot/core-gateway/internal/auth"
	"github.com/iabot/core-gateway/internal/chat"
	"github.com/iabot/core-gateway/internal/speech"
	"github.com/iabot/core-gateway/internal/upstream"
	"github.com/iabot/core-gateway/internal/voice"
	"github.com/iabot/core-gateway/internal/wire"
)

// maxBodyBytes bounds JSON request bodies. Voice uploads have their own limit.
const maxBodyBytes = 1 << 20

// --- JSON Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode error", "err", err)
	}
}

// writeDetail writes the {"detail": ...} body used by the core routes.
func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// writeNativeError writes the {"error": ...} body of the native protocol.
func writeNativeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeChatError writes an OpenAI-format error response.
func writeChatError(w http.ResponseWriter, status int, message, errType, code string) {
	writeJSON(w, status, wire.OpenAIError{
		Error: wire.OpenAIErrorDetail{
			Message: message,
			Type:    errType,
			Code:    code,
		},
	})
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case chat.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, voice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, voice.ErrInvalidID), errors.Is(err, voice.ErrInvalidAudio):
		return http.StatusBadRequest
	case errors.Is(err, speech.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case upstream.IsUpstream(err):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// callerAttrs describes the authenticated caller for log records. Open
// routes carry no credential and yield nothing.
func callerAttrs(r *http.Request) []any {
	cred, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	return []any{"principal", cred.Principal, "scheme", string(cred.Scheme)}
}

// upstreamAttrs adds the timeout flag for upstream failures.
func upstreamAttrs(err error) []any {
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		return nil
	}
	return []any{"upstream_status", ue.StatusCode, "timeout", ue.Timeout()}
}

// failDetail writes err on a core route.
func failDetail(w http.ResponseWriter, err error) {
	writeDetail(w, statusFor(err), err.Error())
}

// failOpenAI writes err on an OpenAI-compatible route.
func failOpenAI(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		writeChatError(w, status, err.Error(), "invalid_request_error", "invalid_request")
	case http.StatusUnauthorized:
		writeChatError(w, status, "Invalid API key", "authentication_error", "invalid_api_key")
	default:
		writeChatError(w, status, err.Error(), "server_error", "upstream_error")
	}
}

// failNative writes err on a native-protocol route.
func failNative(w http.ResponseWriter, err error) {
	writeNativeError(w, statusFor(err), err.Error())
}

// denyDetail rejects a core route request. The challenge header tells
// clients to obtain a bearer token.
func denyDetail(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	detail := "Could not validate credentials"
	if errors.Is(err, auth.ErrMissingCredentials) {
		detail = "Not authenticated"
	}
	writeDetail(w, http.StatusUnauthorized, detail)
}

// denyOpenAI rejects an OpenAI-compatible route request.
func denyOpenAI(w http.ResponseWriter, _ *http.Request, err error) {
	failOpenAI(w, err)
}

// readBody reads a request body of at most limit bytes.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, chat.Invalid("request body too large")
		}
		return nil, chat.Invalid("could not read request body")
	}
	return data, nil
}

// decodeJSON decodes a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	data, err := readBody(w, r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return chat.Invalid("malformed JSON body")
	}
	return nil
}
