package web

// Native-protocol endpoints so clients that speak the runtime's own API can
// point at the gateway without any configuration changes.
//
// Endpoint map:
//   POST /api/chat  → chat completion through the canonical pipeline
//   GET  /api/tags  → the runtime's model listing, passed through verbatim
//
// Both are unauthenticated, like the protocol they emulate.

import (
	"net/http"

	"github.com/iabot/core-gateway/internal/wire"
)

// handleNativeChat handles POST /api/chat.
func (s *Server) handleNativeChat(w http.ResponseWriter, r *http.Request) {
	a := wire.Native{}
	s.serveChat(w, r, a, bodyParser(a), failNative)
}

// handleNativeTags handles GET /api/tags.
func (s *Server) handleNativeTags(w http.ResponseWriter, r *http.Request) {
	raw, err := s.backend.Tags(r.Context())
	if err != nil {
		s.log.Error("upstream tags failed", append([]any{"err", err}, upstreamAttrs(err)...)...)
		failNative(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}
