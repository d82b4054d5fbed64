// Package upstream is the client for the model-serving runtime the gateway
// fronts. It issues exactly one HTTP call per operation and never retries.
package upstream

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
)

// FallbackModel is used when neither the request nor the configuration
// names a model.
const FallbackModel = "mistral"

const (
	ChatTimeout = 30 * time.Second
	ListTimeout = 10 * time.Second
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 512

// maxReplyBody bounds how much of any reply is read.
const maxReplyBody = 16 << 20

// chatRequest is the body of POST /api/chat on the runtime.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  chatOptions    `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// chatResponse is the minimal reply shape of POST /api/chat.
type chatResponse struct {
	Model   string       `json:"model"`
	Message *chatMessage `json:"message"`
	Error   string       `json:"error"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// tagsResponse is the minimal reply shape of GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Client talks to one runtime base address. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	now          func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the transport. Timeouts are still applied per call
// through the request context.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock overrides the time source stamped on results.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client for the runtime at host. A host without a scheme is
// assumed to be plain http.
func New(host, defaultModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:      BaseURL(host),
		defaultModel: strings.TrimSpace(defaultModel),
		httpClient:   &http.Client{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL normalises a configured host into a base address.
func BaseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host
}

// ResolveModel picks the model to run: the request override, then the
// configured default, then FallbackModel.
func ResolveModel(override, configured string) string {
	if m := strings.TrimSpace(override); m != "" {
		return m
	}
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	return FallbackModel
}

// Model returns the model a request without override would run.
func (c *Client) Model() string {
	return ResolveModel("", c.defaultModel)
}

// Invoke sends req to the runtime and returns its reply. Cancelling ctx
// aborts the pending call.
func (c *Client) Invoke(ctx context.Context, req chat.Request) (chat.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, ChatTimeout)
	defer cancel()

	model := ResolveModel(req.Model, c.defaultModel)
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return chat.Result{}, &Error{Op: "chat", Err: fmt.Errorf("marshal request: %w", err)}
	}

	var resp chatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/api/chat", body, &resp); err != nil {
		return chat.Result{}, err
	}
	switch {
	case resp.Error != "":
		return chat.Result{}, &Error{Op: "chat", Err: fmt.Errorf("runtime error: %s", resp.Error)}
	case resp.Message == nil || resp.Message.Content == nil:
		return chat.Result{}, &Error{Op: "chat", Err: errors.New("reply has no message content")}
	}

	return chat.Result{
		Content:   *resp.Message.Content,
		ModelUsed: model,
		CreatedAt: c.now().UTC(),
	}, nil
}

// ListModels returns the identifiers of the models the runtime serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	raw, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}
	var tags tagsResponse
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, &Error{Op: "tags", Err: fmt.Errorf("decode response: %w", err)}
	}
	ids := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		id := m.Name
		if id == "" {
			id = m.Model
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Tags returns the runtime's own tag listing verbatim.
func (c *Client) Tags(ctx context.Context) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.do(ctx, "tags", http.MethodGet, "/api/tags", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	if c.baseURL == "" {
		return &Error{Op: op, Err: fmt.Errorf("no backend address configured")}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody+1))
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if len(data) > maxReplyBody {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reply exceeds %d bytes", maxReplyBody)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, c.baseURL+path, snippet),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
