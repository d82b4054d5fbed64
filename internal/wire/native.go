package wire

// Native adapter: the chat shape of the model-serving runtime itself, so
// clients that speak that protocol can point at the gateway unchanged.

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/iabot/core-gateway/internal/chat"
)

// NativeRequest is the body of POST /api/chat.
type NativeRequest struct {
	Model string `json:"model"`
	// Messages is kept raw so a non-array value can be rejected explicitly.
	Messages    json.RawMessage `json:"messages"`
	Options     *NativeOptions  `json:"options"`
	Temperature *float64        `json:"temperature"`
	MaxTokens   *int            `json:"max_tokens"`
}

// NativeOptions are the nested generation options.
type NativeOptions struct {
	Temperature *float64 `json:"temperature"`
	NumPredict  *int     `json:"num_predict"`
}

// NativeResponse is the reply of POST /api/chat.
type NativeResponse struct {
	Model     string       `json:"model"`
	CreatedAt string       `json:"created_at"`
	Message   chat.Message `json:"message"`
	Done      bool         `json:"done"`
}

// optionLayer is one tagged source of generation options.
type optionLayer struct {
	source string
	opts   chat.Options
}

// optionSources names the layer that supplied each merged field. Empty
// means no layer set it and the default applies.
type optionSources struct {
	Temperature string
	MaxTokens   string
}

// mergeOptions folds layers into one set of options. Layers are given in
// precedence order: for each field the first layer that sets it wins, and
// fields no layer sets stay nil so chat.Build applies its defaults.
func mergeOptions(layers ...optionLayer) (chat.Options, optionSources) {
	var (
		out chat.Options
		src optionSources
	)
	for _, l := range layers {
		if out.Temperature == nil && l.opts.Temperature != nil {
			out.Temperature = l.opts.Temperature
			src.Temperature = l.source
		}
		if out.MaxTokens == nil && l.opts.MaxTokens != nil {
			out.MaxTokens = l.opts.MaxTokens
			src.MaxTokens = l.source
		}
	}
	return out, src
}

// Native is the adapter for the runtime's own /api/chat shape.
type Native struct{}

func (Native) Name() string { return "native" }

func (Native) Parse(body []byte) (chat.Request, error) {
	var req NativeRequest
	if err := decode(body, &req); err != nil {
		return chat.Request{}, err
	}

	raw := bytes.TrimSpace(req.Messages)
	if len(raw) == 0 || raw[0] != '[' {
		return chat.Request{}, chat.Invalid("messages must be an array")
	}
	var msgs []chat.RawMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return chat.Request{}, chat.Invalid("messages must be an array of {role, content} objects")
	}

	nested := optionLayer{source: "options"}
	if req.Options != nil {
		nested.opts = chat.Options{Temperature: req.Options.Temperature, MaxTokens: req.Options.NumPredict}
	}
	top := optionLayer{source: "top-level", opts: chat.Options{Temperature: req.Temperature, MaxTokens: req.MaxTokens}}

	opts, src := mergeOptions(nested, top)
	slog.Debug("native options resolved",
		"temperature_from", orDefault(src.Temperature),
		"max_tokens_from", orDefault(src.MaxTokens),
	)
	return chat.Build(msgs, opts, req.Model, chat.InternalDefaults)
}

func orDefault(source string) string {
	if source == "" {
		return "default"
	}
	return source
}

func (Native) Render(res chat.Result) any {
	return NativeResponse{
		Model:     res.ModelUsed,
		CreatedAt: res.CreatedAt.UTC().Format(time.RFC3339Nano),
		Message:   assistant(res.Content),
		Done:      true,
	}
}
