// Package applog provides general-purpose application logging.
//
// Logs are written to ~/.asksql/logs/app.log through log/slog.
// Covers: app start/stop, config changes, connections, turns and
// general events. Secrets are masked before anything reaches the file.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DachengChen/askSQL/config"
)

var (
	mu      sync.RWMutex
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile *os.File
)

// Init opens the log destination described by cfg and installs the
// package logger. File "-" logs to stderr.
func Init(cfg config.LoggingConfig) error {
	var w io.Writer
	switch cfg.File {
	case "-":
		w = os.Stderr
	default:
		path := cfg.File
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "logs", "app.log")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		mu.Lock()
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		mu.Unlock()
		w = f
	}
	SetLogger(New(w, cfg.Level, cfg.Format))
	return nil
}

// New builds a masking slog logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level), ReplaceAttr: maskAttr}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", "asksql"))
}

// ParseLevel maps debug/info/warn/error to a slog level; unknown
// values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLogger replaces the package logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// Event logs a message under a category such as "connect" or "turn".
func Event(category, msg string, args ...any) {
	Logger().Info(msg, append([]any{slog.String("category", category)}, args...)...)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
