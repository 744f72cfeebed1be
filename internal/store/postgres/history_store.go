// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkotov/fbscraper/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrNotFound indicates no history row exists for the requested scrape ID.
var ErrNotFound = scraper.ErrNotFound

// HistoryStoreConfig controls the Postgres connection pool used for history rows.
type HistoryStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// HistoryStore persists scrape run records in Postgres.
type HistoryStore struct {
	pool  dbPool
	table string
}

// NewHistoryStore creates a Postgres-backed HistoryStore using the provided config.
func NewHistoryStore(ctx context.Context, cfg HistoryStoreConfig) (*HistoryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "scrape_history"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &HistoryStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewHistoryStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewHistoryStoreWithPool(pool dbPool, table string) (*HistoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "scrape_history"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &HistoryStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *HistoryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordScrape inserts a history row for a finished scrape run.
func (s *HistoryStore) RecordScrape(ctx context.Context, rec scraper.HistoryRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("history store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	account_name,
	post_id,
	url,
	status,
	comment_count,
	scroll_rounds,
	started_at,
	finished_at,
	duration_ms,
	error_text,
	blob_prefix
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)`, s.table)

	args := []any{
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
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert scrape history: %w", err)
	}
	return nil
}

const historyColumns = `id, account_name, post_id, url, status, comment_count,
scroll_rounds, started_at, finished_at, duration_ms, error_text, blob_prefix`

// GetScrape fetches a single history row by scrape ID.
func (s *HistoryStore) GetScrape(ctx context.Context, scrapeID string) (scraper.HistoryRecord, error) {
	if s == nil || s.pool == nil {
		return scraper.HistoryRecord{}, fmt.Errorf("history store is not configured")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, historyColumns, s.table)
	rec, err := scanHistoryRow(s.pool.QueryRow(ctx, query, scrapeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scraper.HistoryRecord{}, ErrNotFound
		}
		return scraper.HistoryRecord{}, fmt.Errorf("select scrape history: %w", err)
	}
	return rec, nil
}

// ListScrapes returns the most recent history rows, newest first.
func (s *HistoryStore) ListScrapes(ctx context.Context, limit int) ([]scraper.HistoryRecord, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("history store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY started_at DESC LIMIT $1`, historyColumns, s.table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list scrape history: %w", err)
	}
	defer rows.Close()

	var out []scraper.HistoryRecord
	for rows.Next() {
		rec, scanErr := scanHistoryRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan scrape history: %w", scanErr)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scrape history: %w", err)
	}
	return out, nil
}

func scanHistoryRow(row pgx.Row) (scraper.HistoryRecord, error) {
	var rec scraper.HistoryRecord
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.AccountName,
		&rec.PostID,
		&rec.URL,
		&status,
		&rec.CommentCount,
		&rec.ScrollRounds,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.DurationMs,
		&rec.ErrorText,
		&rec.BlobPrefix,
	)
	if err != nil {
		return scraper.HistoryRecord{}, err
	}
	rec.Status = scraper.Status(status)
	return rec, nil
}
