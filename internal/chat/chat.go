// Package chat holds the shape-independent representation of a chat
// exchange. Every wire format is normalised to a Request before the upstream
// is called, and every reply comes back as a Result.
package chat

import (
	"fmt"
	"time"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole returns the Role named by s. Unknown roles are rejected rather
// than coerced.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	}
	return "", validationf("unknown role %q (want system, user or assistant)", s)
}

// Message is a single turn of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Defaults are applied to options the caller left unset.
type Defaults struct {
	Temperature float64
	MaxTokens   int
}

var (
	// InternalDefaults apply to /llm/chat and the native surface.
	InternalDefaults = Defaults{Temperature: 0.7, MaxTokens: 1000}
	// OpenAIDefaults apply to the OpenAI-compatible surface.
	OpenAIDefaults = Defaults{Temperature: 0.7, MaxTokens: 1024}
)

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Request is the canonical chat request. It is only produced by Build, so
// Temperature and MaxTokens are always populated.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Model is an optional per-request override of the configured model.
	Model string
}

// Result is what the upstream produced for exactly one Request.
type Result struct {
	Content   string
	ModelUsed string
	CreatedAt time.Time
}

// RawMessage is a message as decoded from any wire shape, before validation.
// Pointer fields distinguish a missing key from an empty value.
type RawMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// Options carries the optional generation settings of an inbound call.
type Options struct {
	Temperature *float64
	MaxTokens   *int
}

// Build validates raw messages and options and returns a canonical Request
// with defaults filled in. All adapters go through this function.
func Build(msgs []RawMessage, opts Options, model string, d Defaults) (Request, error) {
	if len(msgs) == 0 {
		return Request{}, validationf("messages must contain at least one message")
	}

	out := make([]Message, 0, len(msgs))
	for i, m := range msgs {
		if m.Role == nil {
			return Request{}, validationf("messages[%d]: role is required", i)
		}
		if m.Content == nil {
			return Request{}, validationf("messages[%d]: content is required", i)
		}
		role, err := ParseRole(*m.Role)
		if err != nil {
			return Request{}, fmt.Errorf("messages[%d]: %w", i, err)
		}
		out = append(out, Message{Role: role, Content: *m.Content})
	}

	req := Request{
		Messages:    out,
		Temperature: d.Temperature,
		MaxTokens:   d.MaxTokens,
		Model:       model,
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}

	if req.Temperature < MinTemperature || req.Temperature > MaxTemperature {
		return Request{}, validationf("temperature must be between %.1f and %.1f, got %g", MinTemperature, MaxTemperature, req.Temperature)
	}
	if req.MaxTokens <= 0 {
		return Request{}, validationf("max_tokens must be a positive integer, got %d", req.MaxTokens)
	}
	return req, nil
}

// UserPrompt wraps a single prompt string as a one-message conversation.
func UserPrompt(prompt string) []RawMessage {
	role := string(RoleUser)
	return []RawMessage{{Role: &role, Content: &prompt}}
}
