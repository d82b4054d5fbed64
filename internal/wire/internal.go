package wire

import (
	"github.com/iabot/core-gateway/internal/chat"
)

// TimestampLayout is the ISO-8601 layout of the /llm/chat timestamp field.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// InternalRequest is the body of POST /llm/chat.
type InternalRequest struct {
	Messages    []chat.RawMessage `json:"messages"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens"`
}

// InternalResponse is the reply of POST /llm/chat.
type InternalResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// Internal is the adapter for the gateway's own chat shape.
type Internal struct{}

func (Internal) Name() string { return "internal" }

func (Internal) Parse(body []byte) (chat.Request, error) {
	var req InternalRequest
	if err := decode(body, &req); err != nil {
		return chat.Request{}, err
	}
	return chat.Build(req.Messages, chat.Options{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, "", chat.InternalDefaults)
}

func (Internal) Render(res chat.Result) any {
	return InternalResponse{
		Response:  res.Content,
		Timestamp: res.CreatedAt.UTC().Format(TimestampLayout),
	}
}
