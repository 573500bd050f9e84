package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/warren/internal/config"
	warrenmcp "github.com/btouchard/warren/internal/mcp"
	"github.com/btouchard/warren/internal/mcp/middleware"
	"github.com/btouchard/warren/internal/notify"
	"github.com/btouchard/warren/internal/provision"
	"github.com/btouchard/warren/internal/render"
	"github.com/btouchard/warren/internal/runner"
	"github.com/btouchard/warren/internal/tunnel"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "create":
		cmdCreate(os.Args[2:])
	case "delete":
		cmdDelete(os.Args[2:])
	case "render":
		cmdRender(os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	case "version":
		fmt.Printf("warren %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: warren <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the Warren MCP server\n")
	fmt.Fprintf(os.Stderr, "  create    Provision a tunnel and print its runner config\n")
	fmt.Fprintf(os.Stderr, "  delete    Release a tunnel and its hostname binding\n")
	fmt.Fprintf(os.Stderr, "  render    Render a runner config for a held credential\n")
	fmt.Fprintf(os.Stderr, "  run       Provision a tunnel and supervise the runner until interrupted\n")
	fmt.Fprintf(os.Stderr, "  check     Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting warren",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cmdCreate(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	name := fs.String("name", "", "tunnel name (also the public subdomain)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	orch, sess, renderer := buildCore(cfg)

	out := orch.Create(ctx, sess, *name)
	if out.State != tunnel.StateSuccess {
		reportFailure(sess, out)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "tunnel %s ready at %s\n", out.TunnelID, out.Hostname)
	_, _ = os.Stdout.Write(renderer.Render(out.Token, out.Hostname))
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	id := fs.String("id", "", "tunnel identity to release")
	name := fs.String("name", "", "tunnel name, for hostname binding cleanup")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	orch, sess, _ := buildCore(cfg)
	sess.SetName(*name)

	out := orch.Delete(ctx, sess, *id)
	if out.State != tunnel.StateSuccess {
		reportFailure(sess, out)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "tunnel %s deleted\n", out.TunnelID)
}

// cmdRender re-renders the runner config for a credential the operator
// already holds, without any remote call. The hostname may be given
// directly or predicted from the tunnel name.
func cmdRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	token := fs.String("token", "", "tunnel credential")
	name := fs.String("name", "", "tunnel name; the hostname is predicted from it")
	hostname := fs.String("hostname", "", "bound hostname, overrides -name")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	renderer := render.New(cfg.DNS.Domain, cfg.Render.LogLevel)

	doc, err := renderDoc(renderer, *token, *name, *hostname)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	_, _ = os.Stdout.Write(doc)
}

// renderDoc resolves the hostname (given, or predicted from the name)
// and renders the runner config document.
func renderDoc(renderer *render.Renderer, token, name, hostname string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("-token is required")
	}
	if hostname == "" {
		if name == "" {
			return nil, errors.New("either -hostname or -name is required")
		}
		hostname = renderer.PredictedHostname(name)
	}
	return renderer.Render(token, hostname), nil
}

// cmdRun provisions a tunnel, writes the runner config, and supervises
// the tunnel-runner until interrupted; the tunnel is released on the way
// out.
func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	name := fs.String("name", "", "tunnel name (also the public subdomain)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	orch, sess, renderer := buildCore(cfg)

	out := orch.Create(ctx, sess, *name)
	if out.State != tunnel.StateSuccess {
		reportFailure(sess, out)
		os.Exit(1)
	}

	r := &runner.Runner{
		BinaryPath: cfg.Runner.BinaryPath,
		ConfigDir:  cfg.Runner.ConfigDir,
	}

	path, err := r.WriteConfig(renderer.Render(out.Token, out.Hostname))
	if err != nil {
		slog.Error("writing runner config", "error", err)
		os.Exit(1)
	}

	runErr := r.Run(ctx, path)

	// Tear down with a fresh context: the run context is already
	// cancelled when we get here via a signal.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if del := orch.Delete(cleanupCtx, sess, out.TunnelID); del.State != tunnel.StateSuccess {
		slog.Warn("tunnel not released on shutdown", "tunnel_id", out.TunnelID, "error", del.Message)
	}

	if runErr != nil {
		slog.Error("tunnel-runner failed", "error", runErr)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	_, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stderr
	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			slog.Warn("failed to open log file, using stderr", "path", cfg.Server.LogFile, "error", err)
		} else {
			out = f
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// buildCore wires the provisioning client, session, orchestrator,
// renderer, and notification hub shared by every command.
func buildCore(cfg *config.Config) (*tunnel.Orchestrator, *tunnel.Session, *render.Renderer) {
	client := provision.NewHTTPClient(
		cfg.Provisioner.BaseURL,
		cfg.Provisioner.AccountID,
		cfg.Provisioner.APIToken,
		cfg.Provisioner.Timeout,
	)

	orch := tunnel.NewOrchestrator(client, cfg.DNS.Domain, cfg.DNS.TargetService)

	if len(cfg.Notifications.Webhooks) > 0 {
		notifiers := make([]notify.Notifier, 0, len(cfg.Notifications.Webhooks))
		for _, hook := range cfg.Notifications.Webhooks {
			notifiers = append(notifiers, notify.NewWebhook(hook))
		}
		hub := notify.NewHub(notifiers...)
		orch.SetNotifyFunc(func(e tunnel.Event) {
			hub.Notify(notify.Event{
				Type:     e.Type,
				TunnelID: e.TunnelID,
				Hostname: e.Hostname,
				Message:  e.Message,
				Time:     time.Now().UTC(),
			})
		})
	}

	return orch, tunnel.NewSession(), render.New(cfg.DNS.Domain, cfg.Render.LogLevel)
}

func reportFailure(sess *tunnel.Session, out tunnel.Outcome) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", out.State, out.Message)
	for _, entry := range sess.Trace() {
		fmt.Fprintf(os.Stderr, "  %s\n", entry)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	orch, sess, renderer := buildCore(cfg)

	mcpServer := warrenmcp.NewServer(&warrenmcp.Deps{
		Orchestrator: orch,
		Session:      sess,
		Renderer:     renderer,
		Version:      version,
	})

	mcpHTTP := server.NewStreamableHTTPServer(mcpServer)

	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit))
		if cfg.Auth.APITokenHash != "" {
			r.Use(middleware.BearerAuth(cfg.Auth.APITokenHash))
		} else {
			slog.Warn("auth.api_token_hash not set, MCP endpoint is unauthenticated")
		}
		r.Handle("/mcp", mcpHTTP)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("warren is ready", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
