package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/iabot/core-gateway/internal/speech"
	"github.com/iabot/core-gateway/internal/voice"
)

// handleTTS handles POST /tts.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req speech.TTSRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		failDetail(w, err)
		return
	}
	if err := req.Normalize(); err != nil {
		failDetail(w, err)
		return
	}
	out, err := s.tts.Synthesize(r.Context(), req)
	if err != nil {
		s.log.Error("tts failed", append([]any{"err", err}, callerAttrs(r)...)...)
		failDetail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSTT handles POST /stt.
func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	var req speech.STTRequest
	// Audio arrives base64 encoded.
	if err := decodeJSON(w, r, 2*voice.MaxSampleBytes, &req); err != nil {
		failDetail(w, err)
		return
	}
	if err := req.Normalize(); err != nil {
		failDetail(w, err)
		return
	}
	out, err := s.stt.Transcribe(r.Context(), req)
	if err != nil {
		s.log.Error("stt failed", append([]any{"err", err}, callerAttrs(r)...)...)
		failDetail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Voices ---

func (s *Server) voiceStore(w http.ResponseWriter) (VoiceStore, bool) {
	if s.voices == nil {
		writeDetail(w, http.StatusServiceUnavailable, "voice storage is not configured")
		return nil, false
	}
	return s.voices, true
}

// handleListVoices handles GET /voices.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	store, ok := s.voiceStore(w)
	if !ok {
		return
	}
	ids, err := store.List()
	if err != nil {
		s.log.Error("list voices failed", "err", err)
		failDetail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": ids})
}

// saveVoiceRequest is the JSON body of POST /voices.
type saveVoiceRequest struct {
	Audio string `json:"audio"`
	Name  string `json:"name"`
}

// handleSaveVoice handles POST /voices with a base64 sample.
func (s *Server) handleSaveVoice(w http.ResponseWriter, r *http.Request) {
	store, ok := s.voiceStore(w)
	if !ok {
		return
	}
	var req saveVoiceRequest
	if err := decodeJSON(w, r, 2*voice.MaxSampleBytes, &req); err != nil {
		failDetail(w, err)
		return
	}
	id, err := store.Save(req.Audio, req.Name)
	if err != nil {
		failDetail(w, err)
		return
	}
	s.log.Info("voice saved", append([]any{"voice_id", id}, callerAttrs(r)...)...)
	writeJSON(w, http.StatusCreated, map[string]string{"voice_id": id})
}

// handleUploadVoice handles POST /voices/upload with a multipart WAV file.
func (s *Server) handleUploadVoice(w http.ResponseWriter, r *http.Request) {
	store, ok := s.voiceStore(w)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, voice.MaxSampleBytes+1<<20)
	if err := r.ParseMultipartForm(voice.MaxSampleBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	id, err := store.SaveWAV(data, r.FormValue("name"))
	if err != nil {
		failDetail(w, err)
		return
	}
	s.log.Info("voice uploaded", append([]any{"voice_id", id, "bytes", len(data)}, callerAttrs(r)...)...)
	writeJSON(w, http.StatusCreated, map[string]string{"voice_id": id})
}

// handleDeleteVoice handles DELETE /voices/{id}.
func (s *Server) handleDeleteVoice(w http.ResponseWriter, r *http.Request) {
	store, ok := s.voiceStore(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := store.Delete(id); err != nil {
		if !errors.Is(err, voice.ErrNotFound) {
			s.log.Error("delete voice failed", "voice_id", id, "err", err)
		}
		failDetail(w, err)
		return
	}
	s.log.Info("voice deleted", append([]any{"voice_id", id}, callerAttrs(r)...)...)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "voice_id": id})
}
