package web

import (
	"net/http"
	"time"

	"github.com/iabot/core-gateway/internal/chat"
	"github.com/iabot/core-gateway/internal/wire"
)

// parseFunc turns an inbound request into a canonical request.
type parseFunc func(w http.ResponseWriter, r *http.Request) (chat.Request, error)

// failFunc writes an error in the caller's wire shape.
type failFunc func(w http.ResponseWriter, err error)

// bodyParser parses the request body with adapter a.
func bodyParser(a wire.Adapter) parseFunc {
	return func(w http.ResponseWriter, r *http.Request) (chat.Request, error) {
		body, err := readBody(w, r, maxBodyBytes)
		if err != nil {
			return chat.Request{}, err
		}
		return a.Parse(body)
	}
}

// serveChat is the one pipeline behind every chat route:
// parse, invoke the upstream once, render in the caller's shape.
func (s *Server) serveChat(w http.ResponseWriter, r *http.Request, a wire.Adapter, parse parseFunc, fail failFunc) {
	req, err := parse(w, r)
	if err != nil {
		fail(w, err)
		return
	}

	start := time.Now()
	res, err := s.backend.Invoke(r.Context(), req)
	if err != nil {
		attrs := append([]any{"adapter", a.Name(), "model", req.Model, "err", err}, upstreamAttrs(err)...)
		s.log.Error("upstream chat failed", append(attrs, callerAttrs(r)...)...)
		fail(w, err)
		return
	}
	attrs := []any{"adapter", a.Name(), "model", res.ModelUsed, "messages", len(req.Messages), "took", time.Since(start)}
	s.log.Info("chat completed", append(attrs, callerAttrs(r)...)...)

	writeJSON(w, http.StatusOK, a.Render(res))
}

// handleLLMChat handles POST /llm/chat.
func (s *Server) handleLLMChat(w http.ResponseWriter, r *http.Request) {
	a := wire.Internal{}
	s.serveChat(w, r, a, bodyParser(a), failDetail)
}

// handleChatCompletions handles POST /v1/chat/completions.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	a := wire.OpenAI{}
	s.serveChat(w, r, a, bodyParser(a), failOpenAI)
}

// handleChatCompletionsQuery handles GET /v1/chat/completions?model=&prompt=.
func (s *Server) handleChatCompletionsQuery(w http.ResponseWriter, r *http.Request) {
	a := wire.OpenAI{}
	parse := func(_ http.ResponseWriter, r *http.Request) (chat.Request, error) {
		return a.FromQuery(r.URL.Query())
	}
	s.serveChat(w, r, a, parse, failOpenAI)
}

// handleModels handles GET /v1/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ids, err := s.backend.ListModels(r.Context())
	if err != nil {
		s.log.Error("upstream list models failed", append([]any{"err", err}, upstreamAttrs(err)...)...)
		failOpenAI(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.Models(ids, time.Now().Unix()))
}
