package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/remicres/theia-picker/internal/cli"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theia-picker",
		Short: "Search and download Theia products",
		Long: `theia-picker searches the Theia catalog for Sentinel-2 products and
downloads them. Individual files can be picked out of the remote product
archives through HTTP byte-range requests, without downloading the whole
archives.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.InitLogger(logLevel, noColor)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.LogLevel = &logLevel
	cli.NoColor = &noColor

	// Add subcommands
	cmd.AddCommand(
		cli.NewSearchCmd(),
		cli.NewFilesCmd(),
		cli.NewDownloadCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
