package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/client"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage atelier configuration settings.

Configuration is loaded from:
  1. the file given with --config
  2. $XDG_CONFIG_HOME/atelier/config.yaml (if set)
  3. ~/.config/atelier/config.yaml

Environment variables can override config file settings using the ATELIER_ prefix:
  ATELIER_SESSION_ENABLED=false
  ATELIER_HISTORY_LIMIT=200
  ATELIER_GITHUB_TOKEN=ghp_...`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() (string, error) {
	if cfgFile != "" {
		return config.ExpandPath(cfgFile)
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// runConfigShow displays the current configuration.
func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		fmt.Printf("Config file: %s\n\n", path)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	paths := client.PathsFromConfig(cfg)
	socket, pid := paths.Socket, paths.PID
	if socket == "" {
		socket = config.DefaultSocketPath()
	}
	if pid == "" {
		pid = config.DefaultPIDPath()
	}
	token := "(unset)"
	if cfg.GitHub.Token != "" {
		token = "(set)"
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("workspace.root_name:      %s\n", cfg.Workspace.RootName)
	fmt.Printf("history.limit:            %d\n", cfg.History.Limit)
	fmt.Printf("activity.capacity:        %d\n", cfg.Activity.Capacity)
	fmt.Printf("session.enabled:          %t\n", cfg.Session.Enabled)
	fmt.Printf("session.path:             %s\n", cfg.Session.Path)
	fmt.Printf("session.interval:         %s\n", cfg.Session.Interval)
	fmt.Printf("import.max_file_size:     %s\n", cfg.Import.MaxFileSize)
	fmt.Printf("import.exclude:           %v\n", cfg.Import.Exclude)
	fmt.Printf("github.api_url:           %s\n", cfg.GitHub.APIURL)
	fmt.Printf("github.token:             %s\n", token)
	fmt.Printf("assistant.provider:       %s\n", cfg.Assistant.Provider)
	fmt.Printf("assistant.model:          %s\n", cfg.Assistant.Model)
	fmt.Printf("logging.level:            %s\n", cfg.Logging.Level)
	fmt.Printf("logging.format:           %s\n", cfg.Logging.Format)
	fmt.Printf("daemon.auto_start:        %t\n", cfg.Daemon.AutoStart)
	fmt.Printf("daemon.socket_path:       %s\n", socket)
	fmt.Printf("daemon.pid_path:          %s\n", pid)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "ATELIER_") {
			name, val, _ := strings.Cut(kv, "=")
			if strings.Contains(name, "TOKEN") || strings.Contains(name, "KEY") {
				val = "(set)"
			}
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.WriteDefault(); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'atelier config edit' to modify it.")
		return nil
	}

	if path, err = config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", path)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	fmt.Println(path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
