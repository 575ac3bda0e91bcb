// Package logging is the structured logger shared by the atelier CLI, TUI
// and daemon. Loggers are created per component and are silent until Init
// is called.
//
//	if err := logging.Init(logging.DefaultConfig()); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("tree").Info("node created", "path", "/root/main.go")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level int

// Levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned by ParseLevel for unknown level names.
var ErrInvalidLevel = errors.New("invalid log level")

// ErrInvalidFormat is returned by Init for unknown file formats.
var ErrInvalidFormat = errors.New("invalid log format")

// ParseLevel parses a level name. "warning" is accepted as an alias of warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default level for every component.
	Level string

	// Path is the log file. Empty means DefaultLogPath.
	Path string

	// Format selects the file encoding: text (default), json or logfmt.
	Format string

	Rotation RotationConfig

	// Components overrides Level per component name.
	Components map[string]string

	// ConsoleLevel mirrors entries at or above this level to stderr.
	// Empty disables console output.
	ConsoleLevel string

	// TUIMode suppresses console output and keeps a ring buffer of recent
	// entries for the log panel.
	TUIMode bool
}

// Entry is a log record delivered to subscribers and the ring buffer.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Logger writes to the log file and optionally to stderr.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.emit(LevelDebug, msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.emit(LevelInfo, msg, keyvals) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.emit(LevelWarn, msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.emit(LevelError, msg, keyvals) }

// Component returns the name the logger was created with.
func (l *Logger) Component() string {
	return l.component
}

// With returns a child logger carrying extra key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	child := &Logger{file: l.file.With(keyvals...), component: l.component}
	if l.console != nil {
		child.console = l.console.With(keyvals...)
	}
	return child
}

func (l *Logger) emit(level Level, msg string, keyvals []interface{}) {
	write(l.file, level, msg, keyvals)
	if l.console != nil {
		write(l.console, level, msg, keyvals)
	}
	std.publish(Entry{Time: time.Now(), Level: level, Component: l.component, Message: msg})
}

func write(dst *log.Logger, level Level, msg string, keyvals []interface{}) {
	switch level {
	case LevelDebug:
		dst.Debug(msg, keyvals...)
	case LevelInfo:
		dst.Info(msg, keyvals...)
	case LevelWarn:
		dst.Warn(msg, keyvals...)
	case LevelError:
		dst.Error(msg, keyvals...)
	}
}

type registry struct {
	mu          sync.RWMutex
	ready       bool
	writer      *RotatingWriter
	formatter   log.Formatter
	level       Level
	overrides   map[string]Level
	loggers     map[string]*Logger
	subscribers map[chan Entry]struct{}

	console      bool
	consoleLevel Level
	tui          bool
	buffer       *LogBuffer
}

var std = &registry{
	loggers:     make(map[string]*Logger),
	overrides:   make(map[string]Level),
	subscribers: make(map[chan Entry]struct{}),
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
	}
}

// Init configures the logging system. Calling it again replaces the
// previous configuration; loggers handed out earlier are rebuilt.
func Init(cfg Config) error {
	std.mu.Lock()
	defer std.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return err
	}
	overrides := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		overrides[comp] = lvl
	}

	consoleOn := false
	var consoleLevel Level
	if cfg.ConsoleLevel != "" && !cfg.TUIMode {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		consoleOn = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	if std.writer != nil {
		if err := std.writer.Close(); err != nil {
			_ = writer.Close()
			return fmt.Errorf("closing previous writer: %w", err)
		}
	}

	std.writer = writer
	std.formatter = formatter
	std.level = level
	std.overrides = overrides
	std.console = consoleOn
	std.consoleLevel = consoleLevel
	std.tui = cfg.TUIMode
	std.buffer = nil
	if cfg.TUIMode {
		std.buffer = NewLogBuffer(DefaultBufferSize)
	}
	std.ready = true

	for name := range std.loggers {
		std.loggers[name] = std.build(name)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	std.mu.RLock()
	l, ok := std.loggers[component]
	std.mu.RUnlock()
	if ok {
		return l
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if l, ok := std.loggers[component]; ok {
		return l
	}
	l = std.build(component)
	std.loggers[component] = l
	return l
}

// build must be called with r.mu held.
func (r *registry) build(component string) *Logger {
	level := r.level
	if lvl, ok := r.overrides[component]; ok {
		level = lvl
	}

	if !r.ready {
		return &Logger{
			file:      log.NewWithOptions(io.Discard, log.Options{Level: level.charm(), Prefix: component}),
			component: component,
		}
	}

	l := &Logger{
		file: log.NewWithOptions(r.writer, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
			Formatter:       r.formatter,
		}),
		component: component,
	}
	if r.console && !r.tui {
		l.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           r.consoleLevel.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		})
	}
	return l
}

// Close flushes the log file and closes every subscription.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if !std.ready {
		return nil
	}
	for ch := range std.subscribers {
		close(ch)
		delete(std.subscribers, ch)
	}

	var err error
	if std.writer != nil {
		err = std.writer.Close()
		std.writer = nil
	}
	std.ready = false
	std.buffer = nil
	std.loggers = make(map[string]*Logger)
	std.overrides = make(map[string]Level)
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// Subscribe returns a buffered channel of new entries. Entries are dropped
// for subscribers that fall behind.
func Subscribe() <-chan Entry {
	std.mu.Lock()
	defer std.mu.Unlock()

	ch := make(chan Entry, 100)
	std.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch. The channel is left open for the caller
// to drain.
func Unsubscribe(ch <-chan Entry) {
	std.mu.Lock()
	defer std.mu.Unlock()

	for sub := range std.subscribers {
		if sub == ch {
			delete(std.subscribers, sub)
			return
		}
	}
}

func (r *registry) publish(e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.buffer != nil {
		r.buffer.Add(e)
	}
	for ch := range r.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Buffer returns the TUI ring buffer, or nil outside TUI mode.
func Buffer() *LogBuffer {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.buffer
}

// DefaultLogPath is $XDG_STATE_HOME/atelier/atelier.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "atelier", "atelier.log")
}

// DefaultConfig logs at info to DefaultLogPath with default rotation.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Format:   "text",
		Rotation: DefaultRotationConfig(),
	}
}
