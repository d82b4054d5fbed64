package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iabot/core-gateway/internal/chat"
	"github.com/iabot/core-gateway/internal/upstream"
)

func TestTTSNormalize(t *testing.T) {
	r := TTSRequest{Text: "bonjour"}
	require.NoError(t, r.Normalize())
	require.Equal(t, "fr", r.Language)

	require.True(t, chat.IsValidation((&TTSRequest{Text: "  "}).Normalize()))

	bad := 0.0
	require.True(t, chat.IsValidation((&TTSRequest{Text: "x", Speed: &bad}).Normalize()))
}

func TestSTTNormalize(t *testing.T) {
	r := STTRequest{Audio: "UklGRg=="}
	require.NoError(t, r.Normalize())
	require.Equal(t, "fr", r.Language)
	require.Equal(t, "base", r.Model)

	require.True(t, chat.IsValidation((&STTRequest{}).Normalize()))
}

func TestSynthesizeForwards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tts", r.URL.Path)
		var in TTSRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "salut", in.Text)
		require.Equal(t, "narrator", in.VoiceID)
		_, _ = w.Write([]byte(`{"audio_url":"/audio/abc.wav"}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, nil).Synthesize(context.Background(), TTSRequest{Text: "salut", Language: "fr", VoiceID: "narrator"})
	require.NoError(t, err)
	require.Equal(t, "/audio/abc.wav", out.AudioURL)
}

func TestTranscribeForwards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stt", r.URL.Path)
		_, _ = w.Write([]byte(`{"text":"bonjour","language":"fr","confidence":-0.21}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, nil).Transcribe(context.Background(), STTRequest{Audio: "x", Language: "fr", Model: "base"})
	require.NoError(t, err)
	require.Equal(t, STTResponse{Text: "bonjour", Language: "fr", Confidence: -0.21}, out)
}

func TestEngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Transcribe(context.Background(), STTRequest{Audio: "x"})
	require.True(t, upstream.IsUpstream(err))
	require.Contains(t, err.Error(), "CUDA out of memory")
}

func TestNotConfigured(t *testing.T) {
	_, err := NewClient("", nil).Synthesize(context.Background(), TTSRequest{Text: "x"})
	require.ErrorIs(t, err, ErrNotConfigured)
}
