package registerd

import (
	"log/slog"
	"os"
	"sync"
)

var logLevel = new(slog.LevelVar)

var autoConfigureOnce sync.Once

// EnsureLoggingConfigured calls ConfigureLogging exactly once per process,
// the first time it is called. regfs.NewStorage calls it so a program that
// never bothers to call ConfigureLogging itself still gets a REGISTERD_LOG_LEVEL-aware
// logger for Storage's correlation-id-tagged Write/Update log lines,
// without a second Storage (or a second call from the same program)
// clobbering a level the first call — or the application itself — already set.
func EnsureLoggingConfigured() {
	autoConfigureOnce.Do(ConfigureLogging)
}

// ConfigureLogging sets up the global default logger with a TextHandler
// and configures the log level based on the REGISTERD_LOG_LEVEL environment
// variable. It defaults to Info level if not specified.
//
// This function should be called by the application at startup if it wants
// to use the default registerd logging configuration.
func ConfigureLogging() {
	// Default to Info
	logLevel.Set(slog.LevelInfo)

	// Check environment variable for log level
	lvl := os.Getenv("REGISTERD_LOG_LEVEL")
	switch lvl {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel sets the logging level for the logger configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
