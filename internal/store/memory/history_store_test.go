package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkotov/fbscraper/internal/scraper"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewHistoryStore()
	now := time.Unix(1700000000, 0).UTC()
	rec := scraper.HistoryRecord{
		ID:           "run-1",
		AccountName:  "somepage",
		PostID:       "123",
		Status:       scraper.StatusCompleted,
		CommentCount: 3,
		StartedAt:    now,
	}
	require.NoError(t, store.RecordScrape(context.Background(), rec))

	got, err := store.GetScrape(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = store.GetScrape(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryStoreRejectsEmptyID(t *testing.T) {
	t.Parallel()

	store := NewHistoryStore()
	require.Error(t, store.RecordScrape(context.Background(), scraper.HistoryRecord{}))
}

func TestHistoryStoreListOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewHistoryStore()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 5; i++ {
		rec := scraper.HistoryRecord{
			ID:        fmt.Sprintf("run-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.RecordScrape(context.Background(), rec))
	}

	out, err := store.ListScrapes(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "run-4", out[0].ID)
	assert.Equal(t, "run-3", out[1].ID)
	assert.Equal(t, "run-2", out[2].ID)
}
