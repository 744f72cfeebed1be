// Package memory is the publisher used when Pub/Sub is disabled. It keeps
// completed scrape results in process so local runs and tests can inspect
// what would have been published.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vkotov/fbscraper/internal/scraper"
)

// Publisher records every payload handed to Publish.
type Publisher struct {
	mu      sync.RWMutex
	records []Record
}

// Record captures one publish call. Result is populated when the payload
// was a scrape result, which is the only payload the service publishes.
type Record struct {
	ID      string
	Topic   string
	Payload any
	Result  *scraper.Result
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload and returns a local message ID. Scrape results
// get an ID derived from their scrape ID so log lines stay correlatable.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := Record{Topic: topic, Payload: payload}
	if res, ok := payload.(scraper.Result); ok {
		rec.Result = &res
	}
	switch {
	case rec.Result != nil && rec.Result.ScrapeID != "":
		rec.ID = "local-" + rec.Result.ScrapeID
	default:
		rec.ID = fmt.Sprintf("local-%d", len(p.records)+1)
	}
	p.records = append(p.records, rec)
	return rec.ID, nil
}

// Records returns a copy of everything published so far.
func (p *Publisher) Records() []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}

// Results returns only the scrape results, in publish order.
func (p *Publisher) Results() []scraper.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []scraper.Result
	for _, rec := range p.records {
		if rec.Result != nil {
			out = append(out, *rec.Result)
		}
	}
	return out
}
