package wire

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iabot/core-gateway/internal/chat"
)

// OpenAI-compatible structs for the /v1/chat/completions and /v1/models endpoints.

// ChatRequest is the OpenAI-compatible chat completion request body.
type ChatRequest struct {
	Model       string            `json:"model"`
	Messages    []chat.RawMessage `json:"messages"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens"`
	Stream      bool              `json:"stream"`
}

// ChatCompletion is the non-streaming OpenAI chat completion response.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   ChatUsage          `json:"usage"`
}

// CompletionChoice is a choice in a non-streaming completion response.
type CompletionChoice struct {
	Index        int          `json:"index"`
	Message      chat.Message `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

// ChatUsage holds token usage counts. The backend reply is not tokenised,
// so every field is always zero.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelList is the response of GET /v1/models.
type ModelList struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}

// ModelEntry is one model in a ModelList.
type ModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelOwner is reported as owned_by for every listed model.
const ModelOwner = "runpod-local"

// Models renders upstream model identifiers as an OpenAI model list.
func Models(ids []string, created int64) ModelList {
	list := ModelList{Object: "list", Data: make([]ModelEntry, 0, len(ids))}
	for _, id := range ids {
		list.Data = append(list.Data, ModelEntry{ID: id, Object: "model", Created: created, OwnedBy: ModelOwner})
	}
	return list
}

// OpenAIError is the top-level error response wrapper.
type OpenAIError struct {
	Error OpenAIErrorDetail `json:"error"`
}

// OpenAIErrorDetail holds the error message, type, and code.
type OpenAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAI is the adapter for the OpenAI chat completion shape.
type OpenAI struct{}

func (OpenAI) Name() string { return "openai" }

func (o OpenAI) Parse(body []byte) (chat.Request, error) {
	var req ChatRequest
	if err := decode(body, &req); err != nil {
		return chat.Request{}, err
	}
	return o.build(req)
}

// FromQuery builds a request from the GET convenience form
// (?model=&prompt=&temperature=&max_tokens=). The prompt becomes a single
// user message and the result is validated exactly like a POST body.
func (o OpenAI) FromQuery(q url.Values) (chat.Request, error) {
	if !q.Has("prompt") {
		return chat.Request{}, chat.Invalid("prompt query parameter is required")
	}
	req := ChatRequest{
		Model:    strings.TrimSpace(q.Get("model")),
		Messages: chat.UserPrompt(q.Get("prompt")),
	}
	if v := q.Get("temperature"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return chat.Request{}, chat.Invalid("temperature must be a number")
		}
		req.Temperature = &f
	}
	if v := q.Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return chat.Request{}, chat.Invalid("max_tokens must be an integer")
		}
		req.MaxTokens = &n
	}
	return o.build(req)
}

func (OpenAI) build(req ChatRequest) (chat.Request, error) {
	if req.Stream {
		return chat.Request{}, chat.Invalid("stream is not supported")
	}
	return chat.Build(req.Messages, chat.Options{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, req.Model, chat.OpenAIDefaults)
}

func (OpenAI) Render(res chat.Result) any {
	return ChatCompletion{
		ID:      NewCompletionID(),
		Object:  "chat.completion",
		Created: res.CreatedAt.Unix(),
		Model:   res.ModelUsed,
		Choices: []CompletionChoice{{
			Index:        0,
			Message:      assistant(res.Content),
			FinishReason: "stop",
		}},
		Usage: ChatUsage{},
	}
}

// NewCompletionID returns "chatcmpl-" followed by 12 lowercase hex chars.
func NewCompletionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "chatcmpl-" + hex[:12]
}
