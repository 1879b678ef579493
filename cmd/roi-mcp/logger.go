package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// logLevelEnv overrides the default log level when --log-level is not given.
const logLevelEnv = "ROI_MCP_LOG_LEVEL"

// newLogger returns a text logger on stderr. Stdout carries the MCP protocol.
func newLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// parseLevel maps a level name to a slog.Level. Empty means info.
func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
