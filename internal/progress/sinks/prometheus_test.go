package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vkotov/fbscraper/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	id := uuid.NewString()
	batch := []progress.Event{
		{ScrapeID: id, TS: time.Now(), Stage: progress.StageScrapeStart},
		{
			ScrapeID:      id,
			TS:            time.Now().Add(2 * time.Second),
			Stage:         progress.StageScrollRound,
			Round:         1,
			NewComments:   7,
			TotalComments: 7,
		},
		{ScrapeID: id, TS: time.Now().Add(15 * time.Second), Stage: progress.StageScrapeDone, Dur: 15 * time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.scrapesStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.scrapesCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.scrapesCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.scrapesRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.scrollRounds))
	require.InDelta(t, 7.0, testutil.ToFloat64(sink.newComments), 1e-9)
	require.Equal(t, 1, testutil.CollectAndCount(sink.scrapeRuntime, "fbscraper_scrape_runtime_seconds"))
}

// TestPrometheusSinkRunningGauge tracks the running gauge across start and error completion.
func TestPrometheusSinkRunningGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	id := uuid.NewString()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{ScrapeID: id, TS: time.Now(), Stage: progress.StageScrapeStart},
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.scrapesRunning))

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{ScrapeID: id, TS: time.Now(), Stage: progress.StageScrapeError, Dur: time.Second, Note: "timeout"},
	}))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.scrapesRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.scrapesCompleted.WithLabelValues("error")))
}
