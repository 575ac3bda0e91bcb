package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/daemon"
)

// DaemonBinary is the name of the daemon executable.
const DaemonBinary = "atelierd"

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // Path to atelierd (auto-discovered if empty)
	Socket string // Unix socket path
	PID    string // PID file path
	Config string // Config file passed to atelierd, if any
}

// PathsFromConfig reads the daemon section of cfg.
func PathsFromConfig(cfg *config.Config) DaemonPaths {
	return DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Socket: cfg.Daemon.SocketPath,
		PID:    cfg.Daemon.PIDPath,
	}
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	return p
}

// StatusPath is where atelierd reports startup success or failure.
func (p DaemonPaths) StatusPath() string {
	return daemon.StatusPath(filepath.Dir(p.withDefaults().Socket))
}

// IsDaemonRunning checks if the daemon is running based on the PID file.
func IsDaemonRunning(paths DaemonPaths) bool {
	return daemon.IsDaemonRunning(paths.withDefaults().PID)
}

// Open returns the daemon when it is running (starting it first when
// autoStart is set), and an in-process workspace otherwise.
func Open(ctx context.Context, cfg *config.Config, paths DaemonPaths, autoStart bool) (Workspace, error) {
	paths = paths.withDefaults()
	log := logging.Get("client")

	if !IsDaemonRunning(paths) && autoStart {
		if err := StartDaemon(paths); err != nil {
			log.Warn("could not start daemon, running in-process", "error", err)
		}
	}
	if IsDaemonRunning(paths) {
		c, err := ConnectWithContext(ctx, paths.Socket)
		if err == nil {
			log.Debug("using daemon", "socket", paths.Socket)
			return c, nil
		}
		// The daemon holds the session lock, so opening it here would fail.
		return nil, err
	}
	return NewLocal(cfg)
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts atelierd in the background.
// Idempotent: returns nil if daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if IsDaemonRunning(paths) {
		return nil // Already running, nothing to do
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find %s: %w", DaemonBinary, err)
	}

	statusPath := paths.StatusPath()
	_ = os.Remove(statusPath)

	args := []string{"--socket", paths.Socket, "--pid", paths.PID}
	if paths.Config != "" {
		args = append(args, "--config", paths.Config)
	}

	// Use exec.Command (not CommandContext) intentionally: daemon must outlive caller
	cmd := exec.Command(binary, args...) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Detach so daemon outlives caller
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	return waitReady(paths.Socket, statusPath, 50, 100*time.Millisecond)
}

// waitReady polls for the socket or the status file.
func waitReady(socket, statusPath string, attempts int, every time.Duration) error {
	for range attempts {
		time.Sleep(every)

		if status, err := daemon.ReadStatus(statusPath); err == nil {
			if !status.Ready() {
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
			return nil
		}
		if _, err := os.Stat(socket); err == nil {
			return nil
		}
	}
	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via RPC.
// Idempotent: returns nil if daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !IsDaemonRunning(paths) {
		return nil // Not running, nothing to do
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer c.Close()

	if _, err := c.Shutdown(ctx, &atelierv1.Empty{}); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsDaemonRunning(paths) {
			return nil
		}
	}
	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds atelierd.
// Priority: configured path > same directory as executable > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		configured, _ = config.ExpandPath(configured)
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), DaemonBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(DaemonBinary); err == nil {
		return path, nil
	}

	return "", errors.New(DaemonBinary + " not found")
}
