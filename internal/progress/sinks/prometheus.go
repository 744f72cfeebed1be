package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vkotov/fbscraper/internal/progress"
)

// PrometheusSink exports scrape progress metrics via Prometheus. It owns all
// collectors for scrapes started/completed/running and scroll-round counters.
type PrometheusSink struct {
	scrapesStarted   prometheus.Counter
	scrapesCompleted *prometheus.CounterVec
	scrapesRunning   prometheus.Gauge
	scrapeRuntime    *prometheus.HistogramVec

	scrollRounds prometheus.Counter
	newComments  prometheus.Counter

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		scrapesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fbscraper_scrapes_started_total",
			Help: "Total scrape runs that have started.",
		}),
		scrapesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbscraper_scrapes_completed_total",
			Help: "Total scrape runs completed partitioned by result.",
		}, []string{"result"}),
		scrapesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbscraper_scrapes_running",
			Help: "Current number of running scrape runs.",
		}),
		scrapeRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fbscraper_scrape_runtime_seconds",
			Help:    "Wall time per completed scrape run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		scrollRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fbscraper_scroll_rounds_total",
			Help: "Total scroll rounds executed across all runs.",
		}),
		newComments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fbscraper_comments_discovered_total",
			Help: "Comments first seen during scroll rounds.",
		}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.scrapesStarted,
		s.scrapesCompleted,
		s.scrapesRunning,
		s.scrapeRuntime,
		s.scrollRounds,
		s.newComments,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageScrapeStart:
		s.scrapesStarted.Inc()
		if s.tracker.start(evt.ScrapeID) {
			s.scrapesRunning.Inc()
		}
	case progress.StageScrollRound:
		s.scrollRounds.Inc()
		if evt.NewComments > 0 {
			s.newComments.Add(float64(evt.NewComments))
		}
	case progress.StageScrapeDone:
		s.scrapesCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt, "success")
		s.completeRun(evt.ScrapeID)
	case progress.StageScrapeError:
		s.scrapesCompleted.WithLabelValues("error").Inc()
		s.observeRuntime(evt, "error")
		s.completeRun(evt.ScrapeID)
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.scrapeRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) completeRun(id string) {
	if s.tracker.complete(id) {
		s.scrapesRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[string]struct{})}
}

func (t *runTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
