package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/tunnel"
)

// DeleteTunnel returns a handler that releases a tunnel and, best effort,
// its hostname binding. Without an explicit tunnel_id it targets the
// session's tracked tunnel.
func DeleteTunnel(o *tunnel.Orchestrator, sess *tunnel.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		id, _ := args["tunnel_id"].(string)
		if id == "" {
			id = sess.TunnelID()
		}

		out := o.Delete(ctx, sess, id)

		switch out.State {
		case tunnel.StateRejected:
			return mcp.NewToolResultError(out.Message), nil
		case tunnel.StateFailure:
			return mcp.NewToolResultError(fmt.Sprintf("Deletion failed: %s", out.Message)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Tunnel %s deleted.", out.TunnelID)), nil
	}
}
