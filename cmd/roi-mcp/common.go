package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ironsheep/roi-tools-mcp/internal/config"
	"github.com/ironsheep/roi-tools-mcp/internal/session"
)

// setup reads the persistent flags and builds the logger and session shared
// by every subcommand. The caller closes the session.
func setup(cmd *cobra.Command) (*session.Session, *slog.Logger, error) {
	levelName, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if levelName == "" {
		levelName = os.Getenv(logLevelEnv)
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(level)

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.New(cfg, session.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start session: %w", err)
	}
	log.Debug("session started", "id", sess.ID, "config", path)
	return sess, log, nil
}

// useColor resolves the --color flag against whether stdout is a terminal.
func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("unknown color mode %q", mode)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
