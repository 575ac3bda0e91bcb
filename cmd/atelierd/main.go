// Command atelierd serves one workspace to atelier clients over a Unix
// socket and keeps its session on disk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace"
)

var (
	socketPath string
	pidPath    string
	cfgFile    string
)

var rootCmd = &cobra.Command{
	Use:           "atelierd",
	Short:         "atelier workspace daemon",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&socketPath, "socket", "", "Unix socket to listen on (default from config)")
	rootCmd.Flags().StringVar(&pidPath, "pid", "", "PID file (default from config)")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/atelier/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "atelierd: %v\n", err)
		os.Exit(1)
	}
}

// resolvePaths fills the socket and PID paths from flags, then config,
// then defaults.
func resolvePaths(cfg *config.Config) (socket, pid string, err error) {
	socket, pid = socketPath, pidPath
	if socket == "" {
		socket = cfg.Daemon.SocketPath
	}
	if pid == "" {
		pid = cfg.Daemon.PIDPath
	}
	if socket == "" {
		socket = config.DefaultSocketPath()
	}
	if pid == "" {
		pid = config.DefaultPIDPath()
	}
	if socket, err = config.ExpandPath(socket); err != nil {
		return "", "", err
	}
	if pid, err = config.ExpandPath(pid); err != nil {
		return "", "", err
	}
	return socket, pid, nil
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	socket, pid, err := resolvePaths(cfg)
	if err != nil {
		return err
	}
	dataDir := filepath.Dir(socket)
	statusPath := daemon.StatusPath(dataDir)

	// Every failure from here on is reported to the starting client.
	fail := func(err error) error {
		_ = daemon.WriteStatusError(statusPath, err)
		return err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fail(fmt.Errorf("create data dir: %w", err))
	}

	logOpts, err := cfg.LoggingOptions()
	if err != nil {
		return fail(err)
	}
	if err := logging.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "atelierd: logging disabled: %v\n", err)
	}
	defer logging.Close()
	log := logging.Get("daemon")

	sessionDir := ""
	if cfg.Session.Enabled {
		if sessionDir, err = config.ExpandPath(cfg.Session.Path); err != nil {
			return fail(err)
		}
	}
	files := daemon.NewArtifacts(pid, socket, sessionDir)
	if _, err := files.RecoverStale(); err != nil {
		if errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
			return fmt.Errorf("already running (pid file %s)", pid)
		}
		return fail(err)
	}

	opts, err := workspace.OptionsFromConfig(cfg)
	if err != nil {
		return fail(fmt.Errorf("open workspace: %w", err))
	}
	ws := workspace.New(opts)
	ws.Restore()
	defer func() {
		if err := ws.Close(); err != nil {
			log.Error("failed to save session", "error", err)
		}
	}()

	svc := daemon.NewService(ws, daemon.GitHubOptions{Token: cfg.GitHub.Token, APIURL: cfg.GitHub.APIURL})
	defer svc.Close()

	srv, err := daemon.NewServer(daemon.Config{SocketPath: socket, DataDir: dataDir}, svc)
	if err != nil {
		return fail(fmt.Errorf("create server: %w", err))
	}

	if err := files.Claim(); err != nil {
		_ = srv.Close()
		return fail(fmt.Errorf("write PID file: %w", err))
	}
	defer func() {
		if err := files.Release(); err != nil {
			log.Warn("failed to remove daemon files", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persisted := make(chan struct{})
	go func() {
		defer close(persisted)
		ws.Run(ctx)
	}()

	stop := func() {
		cancel()
		if err := srv.Close(); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}
	svc.OnShutdown(stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info("shutting down", "signal", sig.String())
			stop()
		case <-ctx.Done():
		}
	}()

	if err := daemon.WriteStatusReady(files.Status, socket); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	log.Info("atelierd starting", "socket", socket, "pid", os.Getpid(), "session", ws.HasSession())

	serveErr := srv.Serve()
	cancel()
	<-persisted
	if serveErr != nil {
		log.Error("server error", "error", serveErr)
		return serveErr
	}
	return nil
}
