package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iabot/core-gateway/internal/auth"
	"github.com/iabot/core-gateway/internal/chat"
	"github.com/iabot/core-gateway/internal/config"
	"github.com/iabot/core-gateway/internal/speech"
)

// ChatBackend is the upstream the gateway forwards normalised requests to.
type ChatBackend interface {
	Invoke(ctx context.Context, req chat.Request) (chat.Result, error)
	ListModels(ctx context.Context) ([]string, error)
	Tags(ctx context.Context) (json.RawMessage, error)
}

// TokenIssuer exchanges login credentials for an access token.
type TokenIssuer interface {
	Issue(ctx context.Context, username, password string) (auth.Token, error)
}

// Synthesizer is the text-to-speech engine.
type Synthesizer interface {
	Synthesize(ctx context.Context, req speech.TTSRequest) (speech.TTSResponse, error)
}

// Transcriber is the speech-to-text engine.
type Transcriber interface {
	Transcribe(ctx context.Context, req speech.STTRequest) (speech.STTResponse, error)
}

// VoiceStore keeps reference voice samples.
type VoiceStore interface {
	List() ([]string, error)
	Save(audioB64, name string) (string, error)
	SaveWAV(data []byte, name string) (string, error)
	Delete(id string) error
}

// ServerOption configures optional Server features.
type ServerOption func(*Server)

// WithSpeech sets the TTS and STT engines. Without it /tts and /stt answer 503.
func WithSpeech(tts Synthesizer, stt Transcriber) ServerOption {
	return func(s *Server) {
		s.tts = tts
		s.stt = stt
	}
}

// WithVoices sets the voice sample store. Without it /voices answers 503.
func WithVoices(v VoiceStore) ServerOption {
	return func(s *Server) { s.voices = v }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// Server is the HTTP front of the gateway.
type Server struct {
	cfg     *config.Config
	backend ChatBackend
	gate    *auth.Gate
	issuer  TokenIssuer
	tts     Synthesizer
	stt     Transcriber
	voices  VoiceStore
	log     *slog.Logger
	mux     *http.ServeMux
	server  *http.Server
}

// New creates the server and registers every route.
func New(cfg *config.Config, backend ChatBackend, gate *auth.Gate, issuer TokenIssuer, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		gate:    gate,
		issuer:  issuer,
		tts:     speech.NewClient("", nil),
		stt:     speech.NewClient("", nil),
		log:     slog.Default(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Chat calls may wait the full upstream timeout.
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Start begins serving HTTP requests. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("gateway listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /openapi.yaml", s.handleOpenAPISpec)
	s.mux.HandleFunc("GET /openapi.json", s.handleOpenAPIJSON)
	s.mux.HandleFunc("GET /docs", s.handleDocs)
	s.mux.HandleFunc("GET /redoc", s.handleDocs)

	s.mux.HandleFunc("POST /auth/token", s.handleLogin)

	// Core routes: JWT or static secret.
	core := func(h http.HandlerFunc) http.HandlerFunc {
		return s.gate.RequireJWTOrSecret(denyDetail, h)
	}
	s.mux.HandleFunc("POST /llm/chat", core(s.handleLLMChat))
	s.mux.HandleFunc("POST /tts", core(s.handleTTS))
	s.mux.HandleFunc("POST /stt", core(s.handleSTT))
	s.mux.HandleFunc("GET /voices", core(s.handleListVoices))
	s.mux.HandleFunc("POST /voices", core(s.handleSaveVoice))
	s.mux.HandleFunc("POST /voices/upload", core(s.handleUploadVoice))
	s.mux.HandleFunc("DELETE /voices/{id}", core(s.handleDeleteVoice))

	// OpenAI-compatible routes: static secret only. The trailing-slash
	// forms share the same handler values.
	compat := func(h http.HandlerFunc) http.HandlerFunc {
		return s.gate.RequireSecret(denyOpenAI, h)
	}
	completionsPost := compat(s.handleChatCompletions)
	completionsGet := compat(s.handleChatCompletionsQuery)
	models := compat(s.handleModels)
	for _, p := range []string{"/v1/chat/completions", "/v1/chat/completions/{$}"} {
		s.mux.HandleFunc("POST "+p, completionsPost)
		s.mux.HandleFunc("GET "+p, completionsGet)
	}
	for _, p := range []string{"/v1/models", "/v1/models/{$}"} {
		s.mux.HandleFunc("GET "+p, models)
	}

	// Native routes are open, like the protocol they emulate.
	s.mux.HandleFunc("POST /api/chat", s.handleNativeChat)
	s.mux.HandleFunc("GET /api/tags", s.handleNativeTags)
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
