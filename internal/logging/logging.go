// Package logging provides structured logging using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// logFile holds the current log file if logging to file.
var logFile *os.File

// Level represents log levels.
type Level = zerolog.Level

// Log levels exposed for convenience.
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
	// TimeFormat specifies the time format. Defaults to RFC3339.
	TimeFormat string
	// LogToFile additionally writes to a timestamped file in LogDir.
	LogToFile bool
	// LogDir is the directory for log files. Defaults to the system
	// temp directory.
	LogDir string
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
		LogDir:     os.TempDir(),
	}
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	if cfg.LogDir == "" {
		cfg.LogDir = os.TempDir()
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var writers []io.Writer

	var consoleOutput io.Writer = cfg.Output
	if cfg.Pretty {
		consoleOutput = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: cfg.TimeFormat,
		}
	}
	writers = append(writers, consoleOutput)

	if cfg.LogToFile {
		if logFile != nil {
			logFile.Close()
		}

		timestamp := time.Now().Format("20060102-150405")
		logPath := filepath.Join(cfg.LogDir, fmt.Sprintf("opencode-engine-%s.log", timestamp))

		var err error
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			writers = append(writers, logFile)
		}
	}

	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = zerolog.MultiLevelWriter(writers...)
	}

	Logger = zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// GetLogFilePath returns the current log file path, or empty string if
// not logging to file.
func GetLogFilePath() string {
	if logFile != nil {
		return logFile.Name()
	}
	return ""
}

// Close closes the log file if one is open.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// ParseLevel parses a log level string (case-insensitive).
// Supported values: DEBUG, INFO, WARN, ERROR, FATAL.
// Returns InfoLevel if the string is not recognized.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// ComponentLogger is how the engine packages log: every event carries
// a "component" field naming the engine that emitted it ("lsp",
// "index", "snapshot", ...), so one grep of the log stream isolates
// one engine's activity. There are deliberately no bare package-level
// Debug/Info/Warn helpers; an untagged line can't say which engine it
// came from.
//
// The global logger is resolved at each call, not captured at
// construction, so a ComponentLogger held in a package variable still
// honors an Init that runs later (the CLI configures logging in its
// PersistentPreRun, long after package init).
type ComponentLogger struct {
	name string
}

// For returns the logger for the named component.
func For(name string) ComponentLogger {
	return ComponentLogger{name: name}
}

// Debug starts a debug level event tagged with the component.
func (c ComponentLogger) Debug() *zerolog.Event {
	return Logger.Debug().Str("component", c.name)
}

// Info starts an info level event tagged with the component.
func (c ComponentLogger) Info() *zerolog.Event {
	return Logger.Info().Str("component", c.name)
}

// Warn starts a warn level event tagged with the component.
func (c ComponentLogger) Warn() *zerolog.Event {
	return Logger.Warn().Str("component", c.name)
}

// Error starts an error level event tagged with the component.
func (c ComponentLogger) Error() *zerolog.Event {
	return Logger.Error().Str("component", c.name)
}

// Fatal starts a fatal level event tagged with the component.
// Calling Msg or Send on the returned event will call os.Exit(1).
func (c ComponentLogger) Fatal() *zerolog.Event {
	return Logger.Fatal().Str("component", c.name)
}

// With creates a child zerolog context carrying the component tag, for
// call sites that attach a fixed set of extra fields.
func (c ComponentLogger) With() zerolog.Context {
	return Logger.With().Str("component", c.name)
}

// init sets up a default logger so the package is usable without
// explicit initialization.
func init() {
	Init(DefaultConfig())
}
