// Package runner supervises the tunnel-runner process that consumes the
// rendered config document.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

const configFileName = "runner.yaml"

// Runner launches the tunnel-runner binary with a written config file and
// streams its output to the log.
type Runner struct {
	BinaryPath string
	ConfigDir  string
}

// WriteConfig writes the rendered config document to the config dir with
// owner-only permissions (the document embeds the tunnel credential) and
// returns its path.
func (r *Runner) WriteConfig(doc []byte) (string, error) {
	if err := os.MkdirAll(r.ConfigDir, 0700); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(r.ConfigDir, configFileName)
	if err := os.WriteFile(path, doc, 0600); err != nil {
		return "", fmt.Errorf("writing runner config: %w", err)
	}

	slog.Info("runner config written", "path", path)
	return path, nil
}

// Run starts the tunnel-runner with the given config and blocks until it
// exits or ctx is cancelled. Cancellation kills the process and is not
// reported as an error.
func (r *Runner) Run(ctx context.Context, configPath string) error {
	cmd := exec.CommandContext(ctx, r.BinaryPath, "--config", configPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			// Shutdown raced the launch; nothing to supervise.
			return nil
		}
		return fmt.Errorf("starting tunnel-runner: %w", err)
	}

	slog.Info("tunnel-runner started", "pid", cmd.Process.Pid, "config", configPath)

	go streamLines(stdout, slog.LevelInfo)
	go streamLines(stderr, slog.LevelWarn)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		slog.Info("tunnel-runner stopped", "reason", ctx.Err())
		return nil
	}
	if waitErr != nil {
		if exitErr, ok := errors.AsType[*exec.ExitError](waitErr); ok {
			return fmt.Errorf("tunnel-runner exited with code %d: %w", exitErr.ExitCode(), waitErr)
		}
		return fmt.Errorf("waiting for tunnel-runner: %w", waitErr)
	}

	slog.Info("tunnel-runner exited")
	return nil
}

func streamLines(r io.Reader, level slog.Level) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		slog.Log(context.Background(), level, "tunnel-runner", "line", scanner.Text())
	}
}
