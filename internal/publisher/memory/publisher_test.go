package memory

import (
	"context"
	"testing"

	"github.com/vkotov/fbscraper/internal/scraper"
)

func TestPublishRecordsScrapeResults(t *testing.T) {
	t.Parallel()

	pub := New()
	res := scraper.Result{ScrapeID: "run-1", URL: "https://www.facebook.com/somepage/posts/1", Status: scraper.StatusCompleted}
	id, err := pub.Publish(context.Background(), "scrape-events", res)
	if err != nil || id != "local-run-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id, err)
	}

	results := pub.Results()
	if len(results) != 1 || results[0].ScrapeID != "run-1" {
		t.Fatalf("Results() = %+v, want the published scrape result", results)
	}
	recs := pub.Records()
	if len(recs) != 1 || recs[0].Topic != "scrape-events" || recs[0].ID != id {
		t.Fatalf("Records() = %+v", recs)
	}
}

func TestPublishFallsBackToSequenceIDs(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "scrape-events", map[string]string{"note": "not a result"})
	if err != nil || id1 != "local-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "scrape-events", "payload")
	if err != nil || id2 != "local-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	if got := pub.Results(); len(got) != 0 {
		t.Fatalf("Results() = %+v, want none for non-result payloads", got)
	}
	recs := pub.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	recs[0].Topic = "modified"
	if pub.Records()[0].Topic == "modified" {
		t.Fatal("expected Records() to return a copy")
	}
}
