package handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/render"
	"github.com/btouchard/warren/internal/tunnel"
)

// RenderConfig returns a handler producing the tunnel-runner config
// document for the session's credential. When the hostname binding does
// not exist yet, the hostname is predicted from the requested name; the
// binding is deterministic, so both forms are byte-identical.
func RenderConfig(sess *tunnel.Session, r *render.Renderer) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token := sess.Token()
		if token == "" {
			return mcp.NewToolResultError("no tunnel credential held — run create_tunnel first"), nil
		}

		hostname := sess.Hostname()
		if hostname == "" {
			name := sess.Name()
			if name == "" {
				return mcp.NewToolResultError("no hostname bound and no tunnel name recorded"), nil
			}
			hostname = r.PredictedHostname(name)
		}

		return mcp.NewToolResultText(string(r.Render(token, hostname))), nil
	}
}
