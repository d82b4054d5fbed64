// Package mcpserver exposes the gateway's chat pipeline as MCP (Model
// Context Protocol) tools over stdio JSON-RPC. Tool calls go through the
// same validation and upstream client as the HTTP routes.
package mcpserver

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/iabot/core-gateway/internal/chat"
	"github.com/iabot/core-gateway/internal/config"
)

// Backend is the upstream the tools call.
type Backend interface {
	Invoke(ctx context.Context, req chat.Request) (chat.Result, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Server holds the MCP tool handlers.
type Server struct {
	backend Backend
}

// New creates an MCP server backed by the given upstream.
func New(backend Backend) *Server {
	return &Server{backend: backend}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"iabot-core",
		config.Version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(
		server.ServerTool{Tool: chatTool(), Handler: s.handleChat},
		server.ServerTool{Tool: listModelsTool(), Handler: s.handleListModels},
	)
	return mcpServer
}

// Serve runs the stdio transport on in/out. It blocks until ctx is
// cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.MCPServer())
	stdio.SetErrorLogger(log.New(os.Stderr, "[mcp] ", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}
