package scraper

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by history stores when no record exists for a
// requested scrape ID.
var ErrNotFound = errors.New("scrape not found")

// HistoryStore persists scrape run metadata.
type HistoryStore interface {
	RecordScrape(ctx context.Context, rec HistoryRecord) error
	GetScrape(ctx context.Context, scrapeID string) (HistoryRecord, error)
	ListScrapes(ctx context.Context, limit int) ([]HistoryRecord, error)
}

// BlobStore writes raw artifacts (screenshots, DOM snapshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces scrape IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher computes digests for blob naming and integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// CommentParser extracts comments from a rendered Facebook page.
type CommentParser interface {
	ExtractComments(html string, limit int) ([]Comment, error)
}

// PageFetcher retrieves page HTML without a browser (plain HTTP path).
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}
