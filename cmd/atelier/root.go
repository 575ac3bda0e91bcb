package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/atelier/output"
	"github.com/jamesainslie/atelier/pkg/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "atelier",
		Short: "A terminal IDE over an in-memory workspace",
		Long: `Atelier keeps a tree of folders and files in memory, with editor tabs,
undo/redo and an activity log, and saves the session between runs.

Without a subcommand atelier opens the interactive TUI. The other commands
work on the same workspace, through the atelierd daemon when it is running
and in-process otherwise.

Examples:
  atelier                              # Open the TUI
  atelier import golang/example        # Import a GitHub repository
  atelier import --kind local ~/src/x  # Import a host folder
  atelier tree                         # Draw the tree
  atelier write notes.md "# Notes"     # Create or overwrite a file
  atelier tabs open notes.md           # Open it in a tab
  atelier logs -f                      # Follow the activity log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/atelier/config.yaml)")
	rootCmd.PersistentFlags().StringP("format", "o", "pretty", "output format: "+strings.Join(output.Available(), ", "))
	rootCmd.PersistentFlags().String("template", "", "Go template for --format template")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-daemon", false, "never start the daemon")

	// Bind flags to viper
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_daemon", rootCmd.PersistentFlags().Lookup("no-daemon"))
}

// initConfig binds ATELIER_* environment variables for the CLI flags.
func initConfig() {
	viper.SetEnvPrefix("ATELIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// loadConfig reads the config file and starts file logging. tui keeps log
// lines off the terminal.
func loadConfig(tui bool) (*config.Config, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	logCfg, err := cfg.LoggingOptions()
	if err != nil {
		return nil, err
	}
	logCfg.TUIMode = tui
	if getVerbose() && !tui {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		// Commands still run without a log file.
		printVerbose("logging disabled: %v", err)
	}
	return cfg, nil
}

// openWorkspace connects to the daemon, starting it when daemon.auto_start
// is set, or opens the workspace in-process.
func openWorkspace(ctx context.Context) (client.Workspace, *config.Config, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, nil, err
	}
	paths := daemonPaths(cfg)
	autoStart := cfg.Daemon.AutoStart && !viper.GetBool("no_daemon")

	ws, err := client.Open(ctx, cfg, paths, autoStart)
	if err != nil {
		return nil, nil, err
	}
	if ws.Remote() {
		printVerbose("using daemon at %s", paths.Socket)
	} else {
		printVerbose("using in-process workspace")
	}
	return ws, cfg, nil
}

// openLocal opens the workspace in this process. Commands that need the
// workspace itself (shell, mcp, chat, tui) cannot share it with a daemon
// that holds the session.
func openLocal() (*client.Local, *config.Config, error) {
	return openLocalMode(false)
}

func openLocalMode(tui bool) (*client.Local, *config.Config, error) {
	cfg, err := loadConfig(tui)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Session.Enabled && client.IsDaemonRunning(daemonPaths(cfg)) {
		return nil, nil, errors.New("atelierd holds the session; stop it with 'atelier daemon stop' first")
	}
	l, err := client.NewLocal(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, cfg, nil
}

func daemonPaths(cfg *config.Config) client.DaemonPaths {
	paths := client.PathsFromConfig(cfg)
	paths.Config = cfgFile
	return paths
}

// render prints v in the --format chosen by the user.
func render(v *output.View) error {
	if getQuiet() && viper.GetString("format") == "pretty" {
		return nil
	}
	f, err := formatter()
	if err != nil {
		return err
	}
	return output.Write(os.Stdout, f, v)
}

func formatter() (output.Formatter, error) {
	name := viper.GetString("format")
	if tmpl := viper.GetString("template"); tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}
	return output.Get(name)
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
