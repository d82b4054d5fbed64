// Package speech holds the clients for the text-to-speech and speech-to-text
// engines behind the /tts and /stt routes. Both engines are separate HTTP
// services; this package only forwards JSON to them.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iabot/core-gateway/internal/chat"
	"github.com/iabot/core-gateway/internal/upstream"
)

// ErrNotConfigured is returned when the engine address is empty.
var ErrNotConfigured = errors.New("speech engine is not configured")

// EngineTimeout bounds one synthesis or transcription call.
const EngineTimeout = 120 * time.Second

// TTSRequest is the body of POST /tts.
type TTSRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	VoiceID  string   `json:"voice_id,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
}

// TTSResponse is what the synthesis engine returns.
type TTSResponse struct {
	AudioURL   string `json:"audio_url,omitempty"`
	Audio      string `json:"audio,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// STTRequest is the body of POST /stt. Audio is base64 encoded.
type STTRequest struct {
	Audio    string `json:"audio"`
	Language string `json:"language"`
	Model    string `json:"model"`
}

// STTResponse is what the transcription engine returns.
type STTResponse struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Normalize applies defaults and validates the request.
func (r *TTSRequest) Normalize() error {
	if strings.TrimSpace(r.Text) == "" {
		return chat.Invalid("text is required")
	}
	if r.Language == "" {
		r.Language = "fr"
	}
	if r.Speed != nil && (*r.Speed <= 0 || *r.Speed > 4) {
		return chat.Invalid("speed must be in (0, 4]")
	}
	return nil
}

// Normalize applies defaults and validates the request.
func (r *STTRequest) Normalize() error {
	if strings.TrimSpace(r.Audio) == "" {
		return chat.Invalid("audio is required")
	}
	if r.Language == "" {
		r.Language = "fr"
	}
	if r.Model == "" {
		r.Model = "base"
	}
	return nil
}

// Client calls one speech engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the engine at addr. An empty addr yields a
// client whose every call fails with ErrNotConfigured.
func NewClient(addr string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: upstream.BaseURL(addr), httpClient: httpClient}
}

// Synthesize forwards a TTS request.
func (c *Client) Synthesize(ctx context.Context, req TTSRequest) (TTSResponse, error) {
	var out TTSResponse
	err := c.post(ctx, "tts", "/tts", req, &out)
	return out, err
}

// Transcribe forwards an STT request.
func (c *Client) Transcribe(ctx context.Context, req STTRequest) (STTResponse, error) {
	var out STTResponse
	err := c.post(ctx, "stt", "/stt", req, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, EngineTimeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &upstream.Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &upstream.Error{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return &upstream.Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &upstream.Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &upstream.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
