package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/mcp/handlers"
)

func registerTools(s *server.MCPServer, deps *Deps) {
	// create_tunnel — Allocate a tunnel and bind its public hostname
	s.AddTool(
		mcp.NewTool("create_tunnel",
			mcp.WithDescription("Provision a named tunnel and bind <name>.<domain> to it. Two remote steps; if the hostname binding fails, the allocated tunnel is kept and reported."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Tunnel name; also used as the public subdomain"),
			),
		),
		handlers.CreateTunnel(deps.Orchestrator, deps.Session),
	)

	// delete_tunnel — Release a tunnel, then its hostname binding
	s.AddTool(
		mcp.NewTool("delete_tunnel",
			mcp.WithDescription("Release a tunnel and, best effort, its hostname binding. A failed DNS cleanup is recorded in the trace but does not fail the deletion."),
			mcp.WithString("tunnel_id",
				mcp.Description("Tunnel identity to release. Defaults to the session's tracked tunnel."),
			),
		),
		handlers.DeleteTunnel(deps.Orchestrator, deps.Session),
	)

	// tunnel_status — Inspect session state
	s.AddTool(
		mcp.NewTool("tunnel_status",
			mcp.WithDescription("Show the tracked tunnel, hostname binding, last workflow status, and optionally the diagnostic trace."),
			mcp.WithBoolean("include_trace",
				mcp.Description("Include the append-only diagnostic trace of the last workflow"),
			),
		),
		handlers.TunnelStatus(deps.Session),
	)

	// render_config — Produce the tunnel-runner config document
	s.AddTool(
		mcp.NewTool("render_config",
			mcp.WithDescription("Render the tunnel-runner configuration for the held credential. Works before the hostname binding exists (the hostname is predicted) and after (the bound hostname is used)."),
		),
		handlers.RenderConfig(deps.Session, deps.Renderer),
	)
}
