package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "roi-mcp",
	Short: "Region-of-interest editing for label images",
	Long: `roi-mcp detects labelled regions in a label image, converts region archives
(zip files of ImageJ .roi entries) and serves an editing session over the
MCP protocol on stdin/stdout.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("roi-mcp {{.Version}}\n  Build time: %s\n  Git commit: %s\n", BuildTime, GitCommit))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(infoCmd)

	rootCmd.PersistentFlags().String("config", "", "path to a TOML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error); defaults to $ROI_MCP_LOG_LEVEL or info")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
