package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/render"
	"github.com/btouchard/warren/internal/tunnel"
)

// Deps holds shared dependencies injected into MCP handlers.
type Deps struct {
	Orchestrator *tunnel.Orchestrator
	Session      *tunnel.Session
	Renderer     *render.Renderer
	Version      string
}

// NewServer creates and configures the MCP server with all tools registered.
func NewServer(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"Warren",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	registerTools(s, deps)

	return s
}
