// Package cmd defines and implements the CLI commands for the fbscraper executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vkotov/fbscraper/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fbscraper",
		Short: "A comment scraper service for public Facebook posts.",
		Long: `fbscraper collects comments from public Facebook posts using a headless
browser. The serve command exposes an HTTP API for on-demand scrapes; the
prepare command verifies the browser runtime and supporting directories
before first use.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newPrepareCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
