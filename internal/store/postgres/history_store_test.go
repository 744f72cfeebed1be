package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/vkotov/fbscraper/internal/scraper"
)

func sampleRecord(now time.Time) scraper.HistoryRecord {
	return scraper.HistoryRecord{
		ID:           "0190b7ae-0000-7000-8000-000000000001",
		AccountName:  "somepage",
		PostID:       "123",
		URL:          "https://www.facebook.com/somepage/posts/123",
		Status:       scraper.StatusCompleted,
		CommentCount: 42,
		ScrollRounds: 7,
		StartedAt:    now,
		FinishedAt:   now.Add(30 * time.Second),
		DurationMs:   30000,
		BlobPrefix:   "scrapes/0190b7ae-0000-7000-8000-000000000001",
	}
}

func TestRecordScrapeInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStoreWithPool(mock, "scrape_history")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := sampleRecord(now)

	mock.ExpectExec("INSERT INTO scrape_history").
		WithArgs(
			rec.ID,
			rec.AccountName,
			rec.PostID,
			rec.URL,
			string(rec.Status),
			rec.CommentCount,
			rec.ScrollRounds,
			rec.StartedAt,
			rec.FinishedAt,
			rec.DurationMs,
			rec.ErrorText,
			rec.BlobPrefix,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordScrape(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordScrapeRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStoreWithPool(mock, "scrape_history")
	require.NoError(t, err)

	err = store.RecordScrape(context.Background(), scraper.HistoryRecord{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScrapeScansRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStoreWithPool(mock, "scrape_history")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := sampleRecord(now)

	rows := pgxmock.NewRows([]string{
		"id", "account_name", "post_id", "url", "status", "comment_count",
		"scroll_rounds", "started_at", "finished_at", "duration_ms", "error_text", "blob_prefix",
	}).AddRow(
		rec.ID, rec.AccountName, rec.PostID, rec.URL, string(rec.Status), rec.CommentCount,
		rec.ScrollRounds, rec.StartedAt, rec.FinishedAt, rec.DurationMs, rec.ErrorText, rec.BlobPrefix,
	)
	mock.ExpectQuery("SELECT .+ FROM scrape_history WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(rows)

	got, err := store.GetScrape(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScrapeNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStoreWithPool(mock, "scrape_history")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM scrape_history WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "account_name", "post_id", "url", "status", "comment_count",
			"scroll_rounds", "started_at", "finished_at", "duration_ms", "error_text", "blob_prefix",
		}))

	_, err = store.GetScrape(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListScrapes(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStoreWithPool(mock, "scrape_history")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := sampleRecord(now)

	rows := pgxmock.NewRows([]string{
		"id", "account_name", "post_id", "url", "status", "comment_count",
		"scroll_rounds", "started_at", "finished_at", "duration_ms", "error_text", "blob_prefix",
	}).AddRow(
		rec.ID, rec.AccountName, rec.PostID, rec.URL, string(rec.Status), rec.CommentCount,
		rec.ScrollRounds, rec.StartedAt, rec.FinishedAt, rec.DurationMs, rec.ErrorText, rec.BlobPrefix,
	)
	mock.ExpectQuery("SELECT .+ FROM scrape_history ORDER BY started_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	got, err := store.ListScrapes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, rec, got[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewHistoryStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewHistoryStoreWithPool(mock, "bad-table;drop")
	require.Error(t, err)
}
