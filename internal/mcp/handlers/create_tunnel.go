package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/tunnel"
)

// CreateTunnel returns a handler that provisions a named tunnel and its
// public hostname binding.
func CreateTunnel(o *tunnel.Orchestrator, sess *tunnel.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		name, _ := args["name"].(string)
		if name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		out := o.Create(ctx, sess, name)

		switch out.State {
		case tunnel.StateRejected:
			return mcp.NewToolResultError(out.Message), nil
		case tunnel.StateFailure:
			var b strings.Builder
			fmt.Fprintf(&b, "Provisioning failed: %s\n", out.Message)
			if out.TunnelID != "" {
				fmt.Fprintf(&b, "\nThe tunnel %s was allocated but has no hostname binding. Delete it with delete_tunnel, or retry create_tunnel.", out.TunnelID)
			}
			return mcp.NewToolResultError(b.String()), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Tunnel created\n\n")
		fmt.Fprintf(&b, "- ID: %s\n", out.TunnelID)
		fmt.Fprintf(&b, "- Hostname: %s\n", out.Hostname)
		fmt.Fprintf(&b, "\nUse render_config to obtain the runner configuration (it contains the credential).")

		return mcp.NewToolResultText(b.String()), nil
	}
}
