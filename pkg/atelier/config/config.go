package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Format     string            `mapstructure:"format"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DaemonConfig configures atelierd.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // empty: look next to the CLI, then PATH
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`
}

// SessionConfig controls tab persistence.
type SessionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Path     string        `mapstructure:"path"`
	Interval time.Duration `mapstructure:"interval"`
}

// ImportConfig controls remote and local imports.
type ImportConfig struct {
	MaxFileSize string   `mapstructure:"max_file_size"`
	Exclude     []string `mapstructure:"exclude"`
}

// GitHubConfig configures the GitHub contents API source.
type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// AssistantConfig selects the chat responder.
type AssistantConfig struct {
	Provider string `mapstructure:"provider"` // rules | openai
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
}

// Config is the full application configuration.
type Config struct {
	Workspace struct {
		RootName string `mapstructure:"root_name"`
	} `mapstructure:"workspace"`
	History struct {
		Limit int `mapstructure:"limit"`
	} `mapstructure:"history"`
	Activity struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"activity"`
	Session   SessionConfig   `mapstructure:"session"`
	Import    ImportConfig    `mapstructure:"import"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
}

// Load reads $XDG_CONFIG_HOME/atelier/config.yaml or
// ~/.config/atelier/config.yaml, then applies ATELIER_* environment
// variables (ATELIER_SESSION_ENABLED=false, ATELIER_GITHUB_TOKEN=...).
// A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "atelier"))
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".config", "atelier"))
	}

	v.SetEnvPrefix("ATELIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Session.Path, err = ExpandPath(cfg.Session.Path); err != nil {
		return nil, err
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = DefaultSessionPath()
	}
	if cfg.Workspace.RootName == "" {
		cfg.Workspace.RootName = DefaultRootName
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace.root_name", DefaultRootName)
	v.SetDefault("history.limit", DefaultHistoryLimit)
	v.SetDefault("activity.capacity", DefaultActivityCapacity)

	v.SetDefault("session.enabled", true)
	v.SetDefault("session.path", "")
	v.SetDefault("session.interval", DefaultSessionInterval)

	v.SetDefault("import.max_file_size", DefaultMaxFileSize)
	v.SetDefault("import.exclude", DefaultImportExclusions)

	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", DefaultGitHubAPI)

	v.SetDefault("assistant.provider", DefaultAssistantProvider)
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"daemon":   "info",
		"watcher":  "warn",
		"importer": "info",
		"tui":      "info",
	})

	v.SetDefault("daemon.auto_start", false)
	v.SetDefault("daemon.socket_path", "")
	v.SetDefault("daemon.pid_path", "")
}

// MaxFileSizeBytes parses Import.MaxFileSize ("500000B", "1MB", "500 kB").
func (c *Config) MaxFileSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Import.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("parsing import.max_file_size %q: %w", c.Import.MaxFileSize, err)
	}
	return int64(n), nil
}

// LoggingOptions converts the logging section to a logging.Config.
func (c *Config) LoggingOptions() (logging.Config, error) {
	rot := logging.RotationConfig{
		MaxAge:     c.Logging.Rotation.MaxAge,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		Daily:      c.Logging.Rotation.Daily,
	}
	if c.Logging.Rotation.MaxSize != "" {
		n, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("parsing logging.rotation.max_size: %w", err)
		}
		rot.MaxSize = int64(n)
	}
	path := c.Logging.Path
	if path == "" {
		path = DefaultLogPath()
	}
	return logging.Config{
		Level:      c.Logging.Level,
		Path:       path,
		Format:     c.Logging.Format,
		Rotation:   rot,
		Components: c.Logging.Components,
	}, nil
}

// ConfigDir is $XDG_CONFIG_HOME/atelier, or ~/.config/atelier.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "atelier"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "atelier"), nil
}

// WriteDefault writes a commented config.yaml unless one already exists.
// It returns the path of the file.
func WriteDefault() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	body := fmt.Sprintf(`# atelier configuration

workspace:
  # Name of the top-level folder
  root_name: %s

history:
  # Maximum number of undo steps
  limit: %d

activity:
  # Maximum number of activity log entries kept in memory
  capacity: %d

session:
  # Persist open tabs and their unsaved buffers
  enabled: true
  # Empty means $XDG_DATA_HOME/atelier/session
  path: ""
  interval: %s

import:
  # Files larger than this are skipped
  max_file_size: %s
  exclude:
    - .git
    - node_modules
    - .DS_Store

github:
  # Optional personal access token for higher rate limits
  token: ""
  api_url: %s

assistant:
  # rules | openai
  provider: %s
  model: gpt-4o-mini
  base_url: ""
  api_key: ""

logging:
  # debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/atelier/atelier.log
  path: ""
  # text, json or logfmt
  format: text
  rotation:
    max_size: 10MB
    max_age: 30
    max_backups: 5
    daily: true
  components:
    daemon: info
    watcher: warn
    importer: info
    tui: info

daemon:
  auto_start: false
  # Empty means $XDG_DATA_HOME/atelier/atelier.sock
  socket_path: ""
  pid_path: ""
`, DefaultRootName, DefaultHistoryLimit, DefaultActivityCapacity, DefaultSessionInterval,
		DefaultMaxFileSize, DefaultGitHubAPI, DefaultAssistantProvider)

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// DataDir holds the session database, socket and PID file.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "atelier")
}

// StateDir holds log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "atelier")
}

// CacheDir holds scratch data such as shell history.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "atelier")
}

func DefaultSocketPath() string  { return filepath.Join(DataDir(), "atelier.sock") }
func DefaultPIDPath() string     { return filepath.Join(DataDir(), "atelier.pid") }
func DefaultSessionPath() string { return filepath.Join(DataDir(), "session") }
func DefaultLogPath() string     { return filepath.Join(StateDir(), "atelier.log") }

// EnsureDataDir creates DataDir.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureCacheDir creates CacheDir.
func EnsureCacheDir() error {
	if err := os.MkdirAll(CacheDir(), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}
