// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "grail-agent", "logs", "grail.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		// Ensure log directory exists
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	// Create multi-writer
	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	// Set log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Create logger
	logger := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithRunID adds a run ID to the logger context.
func WithRunID(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// WithAsset adds an asset symbol to the logger context.
func WithAsset(logger zerolog.Logger, asset string) zerolog.Logger {
	return logger.With().Str("asset", asset).Logger()
}

// WithComponent adds a component name to the logger context.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogSignal logs a generated signal.
func LogSignal(logger zerolog.Logger, asset, direction, pattern string, confidence float64) {
	logger.Info().
		Str("event", "signal").
		Str("asset", asset).
		Str("direction", direction).
		Str("pattern", pattern).
		Float64("confidence", confidence).
		Msg("Signal generated")
}

// LogDecision logs an execution decision.
func LogDecision(logger zerolog.Logger, asset string, execute bool, confidence float64, reason string) {
	logger.Info().
		Str("event", "decision").
		Str("asset", asset).
		Bool("execute", execute).
		Float64("confidence", confidence).
		Str("reason", reason).
		Msg("Execution decision")
}

// LogTrade logs a settled trade.
func LogTrade(logger zerolog.Logger, tradeID, asset, result string, pnl, balance float64) {
	logger.Info().
		Str("event", "trade").
		Str("trade_id", tradeID).
		Str("asset", asset).
		Str("result", result).
		Float64("pnl", pnl).
		Float64("balance", balance).
		Msg("Trade settled")
}

// LogCheckpoint logs a persisted checkpoint.
func LogCheckpoint(logger zerolog.Logger, sequence uint64, trades int, winRate, balance float64) {
	logger.Info().
		Str("event", "checkpoint").
		Uint64("sequence", sequence).
		Int("trades", trades).
		Float64("win_rate", winRate).
		Float64("balance", balance).
		Msg("Checkpoint persisted")
}

// LogPersistFailure logs a non-fatal persistence failure.
func LogPersistFailure(logger zerolog.Logger, op, table string, err error) {
	logger.Warn().
		Str("event", "persist_failure").
		Str("op", op).
		Str("table", table).
		Err(err).
		Msg("Persistence write failed")
}
