package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config represents the logging configuration
type Config struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`

	// Writer overrides the default os.Stderr destination. Used in tests.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns the configuration used when none is provided
func DefaultConfig() *Config {
	return &Config{
		Level:  LogLevelInfo,
		Format: LogFormatJSON,
	}
}

// Validate checks and normalizes the configuration
func (c *Config) Validate() error {
	switch LogLevel(strings.ToLower(string(c.Level))) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		c.Level = LogLevel(strings.ToLower(string(c.Level)))
	case "":
		c.Level = LogLevelInfo
	default:
		return fmt.Errorf("log level must be one of [debug, info, warn, error], got '%s'", c.Level)
	}

	switch LogFormat(strings.ToLower(string(c.Format))) {
	case LogFormatJSON, LogFormatText:
		c.Format = LogFormat(strings.ToLower(string(c.Format)))
	case "":
		c.Format = LogFormatJSON
	default:
		return fmt.Errorf("log format must be one of [json, text], got '%s'", c.Format)
	}

	return nil
}

func (c *Config) slogLevel() slog.Level {
	switch c.Level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Factory creates and manages loggers for different components
type Factory struct {
	config  *Config
	handler slog.Handler
	loggers map[string]*slog.Logger
	mu      sync.RWMutex
}

// NewFactory creates a new logger factory
func NewFactory(config *Config) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.slogLevel()}
	var handler slog.Handler
	if config.Format == LogFormatText {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Factory{
		config:  config,
		handler: handler,
		loggers: make(map[string]*slog.Logger),
	}, nil
}

// GetLogger returns a logger for the named component, creating it on first use
func (f *Factory) GetLogger(component string) *slog.Logger {
	f.mu.RLock()
	if logger, ok := f.loggers[component]; ok {
		f.mu.RUnlock()
		return logger
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if logger, ok := f.loggers[component]; ok {
		return logger
	}

	logger := slog.New(f.handler).With(slog.String("component", component))
	f.loggers[component] = logger
	return logger
}

var (
	globalFactory *Factory
	globalMu      sync.RWMutex
)

// Initialize sets up the global logger factory
func Initialize(config *Config) error {
	factory, err := NewFactory(config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalFactory = factory
	return nil
}

// GetGlobalLogger returns a logger from the global factory
func GetGlobalLogger(component string) *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		// Return default logger if not initialized
		return slog.Default()
	}
	return globalFactory.GetLogger(component)
}

// Shutdown tears down the global logging factory
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalFactory = nil
}
