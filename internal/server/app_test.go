package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/config"
	memorystorage "github.com/vkotov/fbscraper/internal/storage/memory"
	memorystore "github.com/vkotov/fbscraper/internal/store/memory"
)

func testApp(cfg *config.Config) *App {
	return &App{cfg: cfg, logger: zap.NewNop()}
}

func TestSetupStorageDefaultsToMemory(t *testing.T) {
	cfg := &config.Config{}
	app := testApp(cfg)

	store, err := app.setupStorage(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &memorystorage.BlobStore{}, store)
}

func TestSetupStorageLocal(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "local"
	cfg.Storage.LocalDir = t.TempDir()
	app := testApp(cfg)

	store, err := app.setupStorage(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestSetupHistoryDefaultsToMemory(t *testing.T) {
	cfg := &config.Config{}
	app := testApp(cfg)

	require.NoError(t, app.setupHistory(context.Background()))
	assert.IsType(t, &memorystore.HistoryStore{}, app.historyStore)
}

func TestSetupPublisherDisabled(t *testing.T) {
	cfg := &config.Config{}
	app := testApp(cfg)

	pub, err := app.setupPublisher(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pub)
	assert.Nil(t, app.pubsub)
}

func TestSetupProgressBuildsHub(t *testing.T) {
	cfg := &config.Config{}
	cfg.Progress.LogEvents = true
	app := testApp(cfg)

	emitter := app.setupProgress(context.Background())
	require.NotNil(t, emitter)
	require.NotNil(t, app.progressHub)
	require.NoError(t, app.progressHub.Close(context.Background()))
}

func TestLoadCookiesMissingFileIsNonFatal(t *testing.T) {
	cfg := &config.Config{}
	cfg.Browser.CookiesFile = "/nonexistent/cookies.txt"
	app := testApp(cfg)

	assert.Nil(t, app.loadCookies())
}
