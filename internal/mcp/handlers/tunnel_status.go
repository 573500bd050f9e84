package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/tunnel"
)

// TunnelStatus returns a handler reporting the session's current state.
// The credential is never included; only whether one is held.
func TunnelStatus(sess *tunnel.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		includeTrace, _ := args["include_trace"].(bool)

		var b strings.Builder
		b.WriteString("Tunnel session\n\n")

		if id := sess.TunnelID(); id != "" {
			fmt.Fprintf(&b, "- ID: %s\n", id)
			fmt.Fprintf(&b, "- Credential: held (use render_config)\n")
		} else {
			b.WriteString("- ID: none\n")
		}
		if hostname := sess.Hostname(); hostname != "" {
			fmt.Fprintf(&b, "- Hostname: %s\n", hostname)
		} else {
			b.WriteString("- Hostname: not bound\n")
		}
		if name := sess.Name(); name != "" {
			fmt.Fprintf(&b, "- Requested name: %s\n", name)
		}

		st := sess.Status()
		if st.State != "" {
			fmt.Fprintf(&b, "- Last workflow: %s", st.State)
			if st.Message != "" {
				fmt.Fprintf(&b, " (%s)", st.Message)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- Busy: %t\n", sess.Busy())

		if includeTrace {
			trace := sess.Trace()
			b.WriteString("\nDiagnostic trace:\n")
			if len(trace) == 0 {
				b.WriteString("  (empty)\n")
			}
			for _, entry := range trace {
				fmt.Fprintf(&b, "  %s\n", entry)
			}
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}
