package web

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/iabot/core-gateway/internal/speech"
)

// testWAV returns a minimal RIFF/WAVE file with a few payload bytes.
func testWAV() []byte {
	b := make([]byte, 48)
	copy(b[0:4], "RIFF")
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	return b
}

// --- Speech ---

func TestTTSForwardsNormalisedRequest(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/tts", `{"text":"Bonjour"}`, apiKey())

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if e.speech.tts.Language != "fr" {
		t.Errorf("language = %q, want fr", e.speech.tts.Language)
	}
	var resp speech.TTSResponse
	decodeBody(t, w, &resp)
	if resp.SampleRate != 24000 || resp.Audio == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestTTSValidation(t *testing.T) {
	e := newTestEnv(t)
	for _, body := range []string{`{"text":""}`, `{"text":"hi","speed":0}`, `not json`} {
		w := e.do(t, "POST", "/tts", body, apiKey())
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
	if e.speech.called {
		t.Error("engine must not be called for an invalid request")
	}
}

func TestTTSRequiresAuth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/tts", `{"text":"Bonjour"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestTTSNotConfigured(t *testing.T) {
	e := newTestEnv(t)
	e.srv.tts = speech.NewClient("", nil)

	w := e.do(t, "POST", "/tts", `{"text":"Bonjour"}`, apiKey())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestSTTDefaults(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/stt", `{"audio":"UklGRg=="}`, bearer(e.jwt(t, "alice")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if e.speech.stt.Language != "fr" || e.speech.stt.Model != "base" {
		t.Errorf("request = %+v", e.speech.stt)
	}
	var resp speech.STTResponse
	decodeBody(t, w, &resp)
	if resp.Text != "bonjour" {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestSTTMissingAudio(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/stt", `{}`, apiKey())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// --- Voices ---

func TestVoicesLifecycle(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", "/voices", "", apiKey())
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list struct {
		Voices []string `json:"voices"`
	}
	decodeBody(t, w, &list)
	if len(list.Voices) != 0 {
		t.Fatalf("expected no voices, got %v", list.Voices)
	}

	body := `{"name":"narrator","audio":"` + base64.StdEncoding.EncodeToString(testWAV()) + `"}`
	w = e.do(t, "POST", "/voices", body, apiKey())
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var saved map[string]string
	decodeBody(t, w, &saved)
	if saved["voice_id"] != "narrator" {
		t.Errorf("voice_id = %q", saved["voice_id"])
	}
	if _, err := os.Stat(filepath.Join(e.voiceDir, "narrator.wav")); err != nil {
		t.Errorf("sample not written: %v", err)
	}

	w = e.do(t, "GET", "/voices", "", apiKey())
	decodeBody(t, w, &list)
	if len(list.Voices) != 1 || list.Voices[0] != "narrator" {
		t.Errorf("voices = %v", list.Voices)
	}

	w = e.do(t, "DELETE", "/voices/narrator", "", apiKey())
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	var deleted map[string]string
	decodeBody(t, w, &deleted)
	if deleted["status"] != "deleted" || deleted["voice_id"] != "narrator" {
		t.Errorf("delete response = %v", deleted)
	}

	w = e.do(t, "DELETE", "/voices/narrator", "", apiKey())
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestSaveVoiceRejectsBadAudio(t *testing.T) {
	e := newTestEnv(t)
	for _, body := range []string{
		`{"audio":"!!!"}`,
		`{"audio":"` + base64.StdEncoding.EncodeToString([]byte("not a wav file at all, but long enough to pass the length check")) + `"}`,
		`{"name":"../escape","audio":"` + base64.StdEncoding.EncodeToString(testWAV()) + `"}`,
	} {
		w := e.do(t, "POST", "/voices", body, apiKey())
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d for %s", w.Code, body)
		}
	}
}

func TestUploadVoiceMultipart(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sample.wav")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(testWAV())
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/voices/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-KEY", testSecret)
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if len(resp["voice_id"]) != 12 {
		t.Errorf("generated voice_id = %q, want 12 chars", resp["voice_id"])
	}
}

func TestUploadVoiceMissingFile(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "narrator")
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/voices/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-KEY", testSecret)
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestVoicesWithoutStore(t *testing.T) {
	e := newTestEnv(t)
	e.srv.voices = nil

	w := e.do(t, "GET", "/voices", "", apiKey())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
