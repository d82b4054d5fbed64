// Package wire translates between the external request shapes the gateway
// accepts and the canonical chat model.
//
// Each adapter parses one inbound shape into a chat.Request and renders a
// chat.Result back into the same shape. Validation is shared: every Parse
// ends in chat.Build.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iabot/core-gateway/internal/chat"
)

// Adapter is a parse/render pair for one wire shape.
type Adapter interface {
	// Name identifies the shape in logs.
	Name() string
	Parse(body []byte) (chat.Request, error)
	Render(res chat.Result) any
}

// decode unmarshals a JSON object body into v, reporting any failure as a
// validation error.
func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return chat.Invalid("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return chat.Invalid(fmt.Sprintf("malformed JSON body: %v", err))
	}
	return nil
}

// assistant builds the reply message every shape embeds.
func assistant(content string) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: content}
}
