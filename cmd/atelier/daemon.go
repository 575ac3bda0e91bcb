package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/output"
	"github.com/jamesainslie/atelier/pkg/client"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the atelierd daemon",
	Long: `Manage the atelierd daemon, which keeps one workspace in memory and
serves it to every atelier command over a Unix socket.

Without the daemon each command restores the saved session, works on it and
saves it again.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the atelierd daemon",
	Long:  `Start the atelierd daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the atelierd daemon",
	Long:  `Stop the atelierd daemon gracefully. The session is saved first.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the atelierd daemon",
	Long:  `Stop and start the atelierd daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the atelierd daemon.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func cliDaemonPaths() (client.DaemonPaths, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return client.DaemonPaths{}, err
	}
	return daemonPaths(cfg), nil
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths, err := cliDaemonPaths()
	if err != nil {
		return err
	}
	if client.IsDaemonRunning(paths) {
		printInfo("Daemon already running")
		return nil
	}
	printVerbose("starting daemon...")
	if err := client.StartDaemon(paths); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printVerbose("daemon started successfully")
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths, err := cliDaemonPaths()
	if err != nil {
		return err
	}
	printVerbose("checking PID file: %s", paths.PID)
	if !client.IsDaemonRunning(paths) {
		printInfo("Daemon is not running")
		return nil
	}
	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	paths, err := cliDaemonPaths()
	if err != nil {
		return err
	}
	if err := client.RestartDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths, err := cliDaemonPaths()
	if err != nil {
		return err
	}

	if !client.IsDaemonRunning(paths) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer c.Close()

	st, err := c.Status(ctx, &atelierv1.Empty{})
	if err != nil {
		return describe(err)
	}
	return render(&output.View{Status: st})
}
