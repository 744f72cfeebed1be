package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if scrapesTotal == nil || commentsExtractedTotal == nil ||
		scrapeDurationSeconds == nil || httpRequestsTotal == nil ||
		httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveScrape(t *testing.T) {
	Init()

	before := testutil.ToFloat64(scrapesTotal.WithLabelValues("completed"))
	beforeComments := testutil.ToFloat64(commentsExtractedTotal)

	ObserveScrape("completed", 12, 30*time.Second)

	if got := testutil.ToFloat64(scrapesTotal.WithLabelValues("completed")); got != before+1 {
		t.Errorf("expected scrapesTotal to increment, got %f", got)
	}
	if got := testutil.ToFloat64(commentsExtractedTotal); got != beforeComments+12 {
		t.Errorf("expected commentsExtractedTotal to grow by 12, got %f", got)
	}
}
