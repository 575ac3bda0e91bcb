package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/client"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace/session"
)

// Build-time variables set by goreleaser or go build -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the build of atelier, the session schema it reads and writes, and whether atelierd is up.`,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) {
	state := ""
	if cfg, err := config.LoadFile(cfgFile); err == nil {
		state = daemonState(daemonPaths(cfg))
	}
	printVersion(cmd.OutOrStdout(), state)
}

func printVersion(w io.Writer, daemonLine string) {
	fmt.Fprintf(w, "atelier %s\n", version)
	fmt.Fprintf(w, "  commit:  %s\n", commit)
	fmt.Fprintf(w, "  built:   %s\n", date)
	fmt.Fprintf(w, "  go:      %s\n", runtime.Version())
	fmt.Fprintf(w, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  session: schema v%d\n", session.CurrentSchemaVersion)
	if daemonLine != "" {
		fmt.Fprintf(w, "  daemon:  %s\n", daemonLine)
	}
}

// daemonState reads the PID and status files; it never dials the socket.
func daemonState(paths client.DaemonPaths) string {
	if !client.IsDaemonRunning(paths) {
		return "not running"
	}
	status, err := daemon.ReadStatus(paths.StatusPath())
	if err != nil || !status.Ready() {
		return "running"
	}
	return fmt.Sprintf("running (pid %d, %s)", status.PID, status.Socket)
}
