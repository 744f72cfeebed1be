package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPrepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Verify the browser runtime and supporting directories",
		Long: `Runs the environment checks the scraper needs before serving traffic:
the browser cache directory exists, a browser binary can be located, the
cookies file parses, and the browser actually launches. Each step is
idempotent; a second run on a healthy host changes nothing.`,
		RunE: runPrepareCommand,
	}
}

func runPrepareCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := runPrepare(cmd.Context(), cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return nil
}
