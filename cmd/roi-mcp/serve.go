package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/roi-tools-mcp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an editing session over MCP on stdin/stdout",
	Long: `Serve one region editing session using the MCP protocol (JSON-RPC 2.0,
one request per line on stdin, responses on stdout). Logs go to stderr.
Configure it in your MCP client as a stdio server.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	sess, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("ROI MCP server starting", "version", Version, "built", BuildTime, "commit", GitCommit)
	srv := server.New(sess, server.WithLogger(log), server.WithVersion(Version))
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "error", err)
		return err
	}
	return nil
}
