// Package server builds and runs the scraper service from configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/api"
	"github.com/vkotov/fbscraper/internal/browser"
	"github.com/vkotov/fbscraper/internal/clock/system"
	"github.com/vkotov/fbscraper/internal/config"
	collyfetcher "github.com/vkotov/fbscraper/internal/fetcher/colly"
	"github.com/vkotov/fbscraper/internal/hash/sha256"
	"github.com/vkotov/fbscraper/internal/id/uuid"
	"github.com/vkotov/fbscraper/internal/logging"
	"github.com/vkotov/fbscraper/internal/parser"
	"github.com/vkotov/fbscraper/internal/progress"
	progresssinks "github.com/vkotov/fbscraper/internal/progress/sinks"
	memorypublisher "github.com/vkotov/fbscraper/internal/publisher/memory"
	gcppublisher "github.com/vkotov/fbscraper/internal/publisher/pubsub"
	"github.com/vkotov/fbscraper/internal/scraper"
	gcsstorage "github.com/vkotov/fbscraper/internal/storage/gcs"
	localstorage "github.com/vkotov/fbscraper/internal/storage/local"
	memorystorage "github.com/vkotov/fbscraper/internal/storage/memory"
	memorystore "github.com/vkotov/fbscraper/internal/store/memory"
	pgstore "github.com/vkotov/fbscraper/internal/store/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	apiServer    *api.Server
	session      *browser.Session
	progressHub  *progress.Hub
	gcsClient    *gstorage.Client
	pubsub       *gcppublisher.Publisher
	historyStore scraper.HistoryStore
}

// Build creates the application's dependencies. A missing browser runtime is
// not fatal here; the API starts with the browser endpoints degraded so the
// parse-only endpoints stay usable.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies")

	blobStore, err := app.setupStorage(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.setupHistory(ctx); err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	emitter := app.setupProgress(ctx)

	clock := system.New()
	idGen := uuid.New()
	htmlParser := parser.New(logger.Named("parser"))

	cookies := app.loadCookies()
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Scrape.PlainFetchBudget(),
		Cookies:   cookies,
	})

	var sc api.CommentScraper
	app.session, err = browser.New(browser.Config{
		ExecPath:     cfg.Browser.ExecPath,
		Channel:      cfg.Browser.Channel,
		CacheDir:     cfg.Browser.CacheDir,
		UserDataDir:  cfg.Browser.UserDataDir,
		CookiesFile:  cfg.Browser.CookiesFile,
		Headless:     cfg.Browser.Headless,
		UserAgent:    cfg.Browser.UserAgent,
		NavTimeout:   cfg.Browser.NavTimeout(),
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
	}, logger.Named("browser"))
	if err != nil {
		logger.Warn("browser session init failed, browser endpoints degraded", zap.Error(err))
		app.session = nil
	} else {
		client, clientErr := scraper.NewClient(scraper.ClientConfig{
			MaxScrolls:     cfg.Scrape.MaxScrolls,
			ScrollInterval: cfg.Scrape.ScrollInterval(),
			IdleRounds:     cfg.Scrape.IdleRounds,
			Screenshots:    cfg.Scrape.Screenshots,
			BlobPrefix:     cfg.Storage.Prefix,
		}, app.session, htmlParser, blobStore, emitter, clock, idGen, logger.Named("scraper"))
		if clientErr != nil {
			return nil, fmt.Errorf("scrape client init failed: %w", clientErr)
		}
		sc = client
	}

	app.apiServer, err = api.NewServer(*cfg, api.Deps{
		Scraper:   sc,
		Parser:    htmlParser,
		Fetcher:   fetcher,
		History:   app.historyStore,
		Publisher: publisher,
		Hasher:    sha256.New(),
		Clock:     clock,
		Logger:    logger.Named("api"),
	})
	if err != nil {
		return nil, fmt.Errorf("api server init failed: %w", err)
	}
	return app, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close(shutdownCtx)
}

// Close gracefully shuts down every long-lived dependency.
func (a *App) Close(ctx context.Context) error {
	if a.session != nil {
		a.session.Close()
	}
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if pg, ok := a.historyStore.(*pgstore.HistoryStore); ok {
		pg.Close()
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupStorage(ctx context.Context) (scraper.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "gcs":
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return store, nil
	case "local":
		a.logger.Info("using local storage backend", zap.String("dir", a.cfg.Storage.LocalDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupHistory(ctx context.Context) error {
	switch a.cfg.DB.Backend {
	case "postgres":
		a.logger.Info("using postgres history store", zap.String("table", a.cfg.DB.Table))
		store, err := pgstore.NewHistoryStore(ctx, pgstore.HistoryStoreConfig{
			DSN:      a.cfg.DB.DSN,
			Table:    a.cfg.DB.Table,
			MaxConns: int32(a.cfg.DB.MaxOpenConns),
		})
		if err != nil {
			return fmt.Errorf("history store init failed: %w", err)
		}
		a.historyStore = store
	default:
		a.logger.Info("using in-memory history store")
		a.historyStore = memorystore.NewHistoryStore()
	}
	return nil
}

func (a *App) setupPublisher(ctx context.Context) (scraper.Publisher, error) {
	if !a.cfg.PubSub.Enabled {
		a.logger.Info("pubsub disabled, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.logger.Info("pubsub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	a.pubsub = pub
	return pub, nil
}

func (a *App) setupProgress(ctx context.Context) progress.Emitter {
	var sinkList []progress.Sink
	if a.cfg.Progress.LogEvents {
		sinkList = append(sinkList, progresssinks.NewLogSink(a.logger.Named("progress_log")))
	}
	promSink, err := progresssinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		a.logger.Warn("prometheus progress sink init failed", zap.Error(err))
	} else {
		sinkList = append(sinkList, promSink)
	}
	if len(sinkList) == 0 {
		return nil
	}
	a.progressHub = progress.NewHub(progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   a.cfg.Progress.MaxBatchWait(),
		BaseContext:    ctx,
		Logger:         a.logger.Named("progress_hub"),
	}, sinkList...)
	return a.progressHub
}

func (a *App) loadCookies() []browser.Cookie {
	if a.cfg.Browser.CookiesFile == "" {
		return nil
	}
	cookies, err := browser.LoadCookiesFile(a.cfg.Browser.CookiesFile)
	if err != nil {
		a.logger.Warn("cookies file unusable", zap.Error(err))
		return nil
	}
	return cookies
}
