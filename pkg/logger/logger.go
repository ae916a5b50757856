package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var Log *slog.Logger

// Init initializes the global slog logger at Info level, honoring the
// ESUPCHAT_LOG_LEVEL and ESUPCHAT_LOG_SINK environment variables.
func Init() {
	InitWithLevel("", "")
}

// InitWithLevel initializes the global logger honoring the provided level
// ("debug", "info", "warn", "error") and format ("text", "json"). Empty
// values fall back to environment-based behavior.
func InitWithLevel(level, format string) {
	// Allow overriding sink and level via env vars for tests and production
	sink := os.Getenv("ESUPCHAT_LOG_SINK") // e.g. "file:/path/to/log"
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("ESUPCHAT_LOG_LEVEL")))
	}
	var lv slog.Level
	switch lvl {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	case "info":
		lv = slog.LevelInfo
	default:
		lv = slog.LevelInfo
	}

	newHandler := func(f *os.File) slog.Handler {
		if strings.ToLower(strings.TrimSpace(format)) == "json" {
			return slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lv})
		}
		return slog.NewTextHandler(f, &slog.HandlerOptions{Level: lv})
	}

	if strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			Log = slog.New(newHandler(f))
			return
		}
		// fallback to stdout
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
	}
	Log = slog.New(newHandler(os.Stdout))
}

func ensure() {
	if Log == nil {
		Init()
	}
}

func Debug(msg string, args ...any) {
	ensure()
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	ensure()
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	ensure()
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	ensure()
	Log.Error(msg, args...)
}
