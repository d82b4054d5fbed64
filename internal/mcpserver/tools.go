package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/iabot/core-gateway/internal/chat"
)

// --- Tool Definitions ---

func chatTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"chat",
		"Send a conversation (or a single prompt) to the configured model and return the assistant reply.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"messages": {
					"type": "array",
					"description": "Conversation in order. Ignored when prompt is set.",
					"items": {
						"type": "object",
						"properties": {
							"role": {
								"type": "string",
								"enum": ["system", "user", "assistant"]
							},
							"content": {
								"type": "string"
							}
						},
						"required": ["role", "content"]
					}
				},
				"prompt": {
					"type": "string",
					"description": "Single user prompt, shorthand for a one-message conversation"
				},
				"model": {
					"type": "string",
					"description": "Model override (default: configured model)"
				},
				"temperature": {
					"type": "number",
					"minimum": 0,
					"maximum": 2,
					"description": "Sampling temperature (default: 0.7)"
				},
				"max_tokens": {
					"type": "integer",
					"minimum": 1,
					"description": "Maximum tokens to generate (default: 1000)"
				}
			}
		}`),
	)
}

func listModelsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"list_models",
		"List the models available on the upstream runtime.",
		json.RawMessage(`{"type": "object", "properties": {}}`),
	)
}

// --- Tool Handlers ---

type chatArgs struct {
	Messages    []chat.RawMessage `json:"messages"`
	Prompt      string            `json:"prompt"`
	Model       string            `json:"model"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens"`
}

// chatResult mirrors the chat tool response.
type chatResult struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

func (s *Server) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args chatArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	msgs := args.Messages
	if args.Prompt != "" {
		msgs = chat.UserPrompt(args.Prompt)
	}
	creq, err := chat.Build(msgs, chat.Options{Temperature: args.Temperature, MaxTokens: args.MaxTokens}, args.Model, chat.InternalDefaults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.backend.Invoke(ctx, creq)
	if err != nil {
		slog.Error("mcp chat failed", "model", creq.Model, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("chat: %v", err)), nil
	}

	return resultJSON(chatResult{Content: res.Content, Model: res.ModelUsed})
}

func (s *Server) handleListModels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.backend.ListModels(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list models: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return resultJSON(map[string][]string{"models": ids})
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
