package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/bootstrap"
	"github.com/vkotov/fbscraper/internal/config"
	"github.com/vkotov/fbscraper/internal/logging"
	"github.com/vkotov/fbscraper/internal/server"
)

var skipPrepare bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scraper HTTP API",
		Long: `Starts the HTTP API on the configured address (0.0.0.0:8000 by default).
Unless --skip-prepare is given, the environment checks from the prepare
command run first so a broken browser install fails fast instead of on
the first scrape request.`,
		RunE: runServeCommand,
	}
	cmd.Flags().BoolVar(&skipPrepare, "skip-prepare", false, "skip environment checks before serving")
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !skipPrepare {
		if err := runPrepare(cmd.Context(), cfg); err != nil {
			return err
		}
	}

	app, err := server.Build(cmd.Context(), &cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	if err := app.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

func runPrepare(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	preparer := bootstrap.New(bootstrap.Config{
		CacheDir:     cfg.Browser.CacheDir,
		ExecPath:     cfg.Browser.ExecPath,
		Channel:      cfg.Browser.Channel,
		CookiesFile:  cfg.Browser.CookiesFile,
		ProbeTimeout: cfg.Browser.LaunchProbeTimeout(),
	}, logger)

	browserPath, err := preparer.Run(ctx)
	if err != nil {
		return fmt.Errorf("environment checks failed: %w", err)
	}
	logger.Info("environment ready", zap.String("browser", browserPath))
	return nil
}
