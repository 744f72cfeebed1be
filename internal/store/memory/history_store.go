// Package memory provides an in-memory history store for development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vkotov/fbscraper/internal/scraper"
)

// ErrNotFound indicates no history record exists for the requested scrape ID.
var ErrNotFound = scraper.ErrNotFound

// HistoryStore keeps scrape history in process memory. Suitable for single
// node deployments and tests; records do not survive restarts.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string]scraper.HistoryRecord
}

// NewHistoryStore creates an empty in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]scraper.HistoryRecord)}
}

// RecordScrape stores a copy of the record keyed by its scrape ID.
func (s *HistoryStore) RecordScrape(_ context.Context, rec scraper.HistoryRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// GetScrape returns the record for scrapeID or ErrNotFound.
func (s *HistoryStore) GetScrape(_ context.Context, scrapeID string) (scraper.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[scrapeID]
	if !ok {
		return scraper.HistoryRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListScrapes returns up to limit records ordered newest first by start time.
func (s *HistoryStore) ListScrapes(_ context.Context, limit int) ([]scraper.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	out := make([]scraper.HistoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
