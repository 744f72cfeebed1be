package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/bootstrap"
	"github.com/vkotov/fbscraper/internal/metrics"
	"github.com/vkotov/fbscraper/internal/scraper"
)

const (
	methodHTMLParsing = "html_parsing"
	methodPlainHTTP   = "plain_http"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Facebook Comments Scraper</title></head>
<body>
<h1>Facebook Comments Scraper</h1>
<p>Scrapes public comments from Facebook posts.</p>
<ul>
<li>GET /health</li>
<li>GET /metrics</li>
<li>POST /facebook/scrape-post</li>
<li>POST /facebook/parse-html</li>
<li>POST /facebook/parse-url</li>
<li>GET /facebook/scrapes</li>
<li>GET /facebook/scrapes/{scrape_id}</li>
</ul>
</body>
</html>
`

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexPage))
}

type scrapePostRequest struct {
	AccountName string `json:"account_name"`
	PostID      string `json:"post_id"`
	Limit       *int   `json:"limit"`
	WaitTime    *int   `json:"wait_time"`
}

type scrapePostResponse struct {
	Success     bool           `json:"success"`
	Result      scraper.Result `json:"result"`
	URL         string         `json:"url"`
	AccountName string         `json:"account_name"`
	PostID      string         `json:"post_id"`
	FetchedAt   string         `json:"fetched_at"`
}

func (s *Server) scrapePost(w http.ResponseWriter, r *http.Request) {
	var req scrapePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	url, err := scraper.PostURL(req.AccountName, req.PostID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	postID, err := scraper.ExtractPostID(req.PostID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	wait, err := s.resolveWait(req.WaitTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Scraper == nil {
		writeError(w, http.StatusInternalServerError, browserUnavailableDetail())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.scrapeBudget(wait))
	defer cancel()
	res, err := s.deps.Scraper.FetchComments(ctx, url, limit, wait)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.finishScrape(r.Context(), req.AccountName, postID, res)

	writeJSON(w, http.StatusOK, scrapePostResponse{
		Success:     res.Success,
		Result:      res,
		URL:         url,
		AccountName: req.AccountName,
		PostID:      postID,
		FetchedAt:   res.FetchedAt.Format(time.RFC3339),
	})
}

type parseHTMLRequest struct {
	HTMLContent string `json:"html_content"`
	Limit       *int   `json:"limit"`
}

func (s *Server) parseHTML(w http.ResponseWriter, r *http.Request) {
	var req parseHTMLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.HTMLContent == "" {
		writeError(w, http.StatusBadRequest, "html_content is required")
		return
	}
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.deps.Hasher != nil {
		if digest, hashErr := s.deps.Hasher.Hash([]byte(req.HTMLContent)); hashErr == nil {
			s.deps.Logger.Debug("parsing caller-supplied html",
				zap.String("sha256", digest),
				zap.Int("bytes", len(req.HTMLContent)),
			)
		}
	}

	comments, err := s.deps.Parser.ExtractComments(req.HTMLContent, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"comments":    comments,
		"total_count": len(comments),
		"method":      methodHTMLParsing,
		"parsed_at":   s.deps.Clock.Now().Format(time.RFC3339),
	})
}

type parseURLRequest struct {
	URL   string `json:"url"`
	Limit *int   `json:"limit"`
	// UseBrowser defaults to true when omitted; comment streams rarely render
	// without JavaScript, so the browser path is the useful default.
	UseBrowser *bool `json:"use_browser"`
	WaitTime   *int  `json:"wait_time"`
}

func (s *Server) parseURL(w http.ResponseWriter, r *http.Request) {
	var req parseURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	useBrowser := req.UseBrowser == nil || *req.UseBrowser
	if useBrowser {
		wait, waitErr := s.resolveWait(req.WaitTime)
		if waitErr != nil {
			writeError(w, http.StatusBadRequest, waitErr.Error())
			return
		}
		if s.deps.Scraper == nil {
			writeError(w, http.StatusInternalServerError, browserUnavailableDetail())
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.scrapeBudget(wait))
		defer cancel()
		res, scrapeErr := s.deps.Scraper.FetchComments(ctx, req.URL, limit, wait)
		if scrapeErr != nil {
			writeError(w, http.StatusInternalServerError, scrapeErr.Error())
			return
		}
		s.finishScrape(r.Context(), "", "", res)
		writeJSON(w, http.StatusOK, res)
		return
	}

	if s.deps.Fetcher == nil {
		writeError(w, http.StatusInternalServerError, "plain HTTP fetcher is not configured")
		return
	}
	fetchCtx, cancel := context.WithTimeout(r.Context(), s.cfg.Scrape.PlainFetchBudget())
	defer cancel()
	html, err := s.deps.Fetcher.FetchHTML(fetchCtx, req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	comments, err := s.deps.Parser.ExtractComments(html, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"url":         req.URL,
		"comments":    comments,
		"total_count": len(comments),
		"method":      methodPlainHTTP,
		"fetched_at":  s.deps.Clock.Now().Format(time.RFC3339),
	})
}

func (s *Server) listScrapes(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, "scrape history is not configured")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	records, err := s.deps.History.ListScrapes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []scraper.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scrapes":     records,
		"total_count": len(records),
	})
}

func (s *Server) getScrape(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, "scrape history is not configured")
		return
	}
	scrapeID := chi.URLParam(r, "scrape_id")
	rec, err := s.deps.History.GetScrape(r.Context(), scrapeID)
	if err != nil {
		if errors.Is(err, scraper.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scrape not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// finishScrape records history, publishes the completion event, and updates
// metrics. All of it is best-effort; a scrape that succeeded is never failed
// retroactively because persistence hiccupped.
func (s *Server) finishScrape(ctx context.Context, accountName, postID string, res scraper.Result) {
	metrics.ObserveScrape(string(res.Status), res.TotalCount, time.Duration(res.DurationSeconds*float64(time.Second)))

	if s.deps.History != nil {
		rec := scraper.HistoryRecord{
			ID:           res.ScrapeID,
			AccountName:  accountName,
			PostID:       postID,
			URL:          res.URL,
			Status:       res.Status,
			CommentCount: res.TotalCount,
			ScrollRounds: res.ScrollRounds,
			StartedAt:    res.StartedAt,
			FinishedAt:   res.FetchedAt,
			DurationMs:   int64(res.DurationSeconds * 1000),
			ErrorText:    res.Error,
			BlobPrefix:   s.cfg.Storage.Prefix + res.ScrapeID,
		}
		if err := s.deps.History.RecordScrape(ctx, rec); err != nil {
			s.deps.Logger.Warn("record scrape history failed",
				zap.String("scrape_id", res.ScrapeID),
				zap.Error(err),
			)
		}
	}

	if s.deps.Publisher != nil {
		if _, err := s.deps.Publisher.Publish(ctx, s.cfg.PubSub.TopicName, res); err != nil {
			s.deps.Logger.Warn("publish scrape completion failed",
				zap.String("scrape_id", res.ScrapeID),
				zap.Error(err),
			)
		}
	}
}

// scrapeBudget bounds one browser scrape: the initial wait, the worst-case
// scroll loop, and slack for navigation and parsing.
func (s *Server) scrapeBudget(wait time.Duration) time.Duration {
	return wait + time.Duration(s.cfg.Scrape.MaxScrolls)*s.cfg.Scrape.ScrollInterval() + 2*time.Minute
}

func (s *Server) resolveLimit(limit *int) (int, error) {
	if limit == nil {
		return s.cfg.Scrape.DefaultLimit, nil
	}
	if *limit < 1 {
		return 0, errors.New("limit must be >= 1")
	}
	if *limit > s.cfg.Scrape.MaxLimit {
		return 0, fmt.Errorf("limit must be <= %d", s.cfg.Scrape.MaxLimit)
	}
	return *limit, nil
}

func (s *Server) resolveWait(waitSec *int) (time.Duration, error) {
	if waitSec == nil {
		return s.cfg.Scrape.DefaultWait(), nil
	}
	if *waitSec < 1 {
		return 0, errors.New("wait_time must be >= 1")
	}
	if time.Duration(*waitSec)*time.Second > s.cfg.Scrape.MaxWait() {
		return 0, fmt.Errorf("wait_time must be <= %d", s.cfg.Scrape.MaxWaitSec)
	}
	return time.Duration(*waitSec) * time.Second, nil
}

func browserUnavailableDetail() string {
	return fmt.Sprintf(
		"browser runtime is unavailable; run `fbscraper prepare` or install one with: %s",
		bootstrap.InstallCommand,
	)
}
