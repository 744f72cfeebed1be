// Package scraper defines core types shared across subsystems.
package scraper

import (
	"time"
)

// Status represents the lifecycle state of a scrape run.
type Status string

// Scrape status values recorded in results and the history store.
const (
	StatusStarted      Status = "started"
	StatusInitializing Status = "initializing_browser"
	StatusCollecting   Status = "scrolling_and_collecting"
	StatusCompleted    Status = "completed"
	StatusNoComments   Status = "completed_no_comments"
	StatusFailed       Status = "failed"
)

// MethodBrowserIncremental names the scroll-and-parse collection strategy.
const MethodBrowserIncremental = "browser_rendering_incremental"

// Comment is a single extracted Facebook comment.
type Comment struct {
	ID       string    `json:"comment_id"`
	Author   string    `json:"author"`
	AuthorID string    `json:"author_id"`
	Text     string    `json:"text"`
	Time     string    `json:"time"`
	Likes    int       `json:"likes"`
	Replies  []Comment `json:"replies"`
}

// Request captures everything needed to scrape one post.
type Request struct {
	AccountName string
	PostID      string
	Limit       int
	WaitTime    time.Duration
}

// Result is returned for each scrape run.
type Result struct {
	ScrapeID        string    `json:"scrape_id,omitempty"`
	Comments        []Comment `json:"comments"`
	TotalCount      int       `json:"total_count"`
	URL             string    `json:"url"`
	Status          Status    `json:"status"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FetchedAt       time.Time `json:"fetched_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Method          string    `json:"method"`
	ScrollRounds    int       `json:"scroll_rounds,omitempty"`
	Screenshots     []string  `json:"screenshots,omitempty"`
}

// HistoryRecord is persisted for each finished scrape run.
type HistoryRecord struct {
	ID           string    `json:"id"`
	AccountName  string    `json:"account_name"`
	PostID       string    `json:"post_id"`
	URL          string    `json:"url"`
	Status       Status    `json:"status"`
	CommentCount int       `json:"comment_count"`
	ScrollRounds int       `json:"scroll_rounds"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMs   int64     `json:"duration_ms"`
	ErrorText    string    `json:"error_text,omitempty"`
	BlobPrefix   string    `json:"blob_prefix,omitempty"`
}

// DedupeKey returns the identity used for incremental deduplication.
// Comments without an extracted ID fall back to an author plus text-prefix key.
func (c Comment) DedupeKey() string {
	if c.ID != "" {
		return c.ID
	}
	text := c.Text
	if len(text) > 50 {
		text = text[:50]
	}
	return c.Author + "_" + text
}
