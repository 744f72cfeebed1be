package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/browser"
	"github.com/vkotov/fbscraper/internal/progress"
)

// commentSelectors is the cascade used in-page to locate comment containers.
// It mirrors the selectors the HTML parser checks so the scroll loop and the
// extraction pass agree on what counts as a comment.
var commentSelectors = []string{
	`div[data-ft]`,
	`div[class*="comment"]`,
	`div[data-testid*="comment"]`,
	`div[role="article"]`,
	`[data-sigil*="comment"]`,
}

// scrollScript nudges the viewport toward the middle and near-tail comment
// nodes. Mobile Facebook lazy-loads additional comments when existing ones
// enter the viewport, so scrolling past them is what triggers loading. Falls
// back to a plain page-bottom scroll when no comments are present yet.
const scrollScript = `(() => {
	const sels = %s;
	let nodes = [];
	for (const s of sels) {
		nodes = document.querySelectorAll(s);
		if (nodes.length > 0) break;
	}
	if (nodes.length === 0) {
		window.scrollTo(0, document.body.scrollHeight);
		return 0;
	}
	nodes[Math.floor(nodes.length / 2)].scrollIntoView({block: "center"});
	nodes[Math.max(0, nodes.length - 2)].scrollIntoView({block: "center"});
	return nodes.length;
})()`

// ClientConfig bounds the incremental scroll-and-collect loop.
type ClientConfig struct {
	// MaxScrolls caps scroll rounds per run.
	MaxScrolls int
	// ScrollInterval is the pause between scroll rounds.
	ScrollInterval time.Duration
	// IdleRounds stops the loop after this many consecutive rounds with no
	// new comments.
	IdleRounds int
	// Screenshots enables capture of debug screenshots into the blob store.
	Screenshots bool
	// BlobPrefix is prepended to screenshot object paths.
	BlobPrefix string
}

// Client drives a shared browser session through the scrape pipeline: open a
// tab, navigate the mobile post URL, scroll until the comment stream stops
// growing, then hand the final DOM to the parser.
type Client struct {
	cfg     ClientConfig
	session *browser.Session
	parser  CommentParser
	blobs   BlobStore
	emitter progress.Emitter
	clock   Clock
	ids     IDGenerator
	logger  *zap.Logger
}

// NewClient wires a scrape client. The session must already be warmed up;
// blobs and emitter may be nil to disable screenshots and progress events.
func NewClient(
	cfg ClientConfig,
	session *browser.Session,
	parser CommentParser,
	blobs BlobStore,
	emitter progress.Emitter,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) (*Client, error) {
	if session == nil {
		return nil, fmt.Errorf("browser session is required")
	}
	if parser == nil {
		return nil, fmt.Errorf("comment parser is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 100
	}
	if cfg.ScrollInterval <= 0 {
		cfg.ScrollInterval = time.Second
	}
	if cfg.IdleRounds <= 0 {
		cfg.IdleRounds = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		session: session,
		parser:  parser,
		blobs:   blobs,
		emitter: emitter,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}, nil
}

// FetchComments scrapes up to limit comments from the post at url, waiting
// waitTime after the initial navigation for the page to settle. Scrape-level
// failures are reported inside the Result; the error return is reserved for
// conditions that make scraping impossible (no ID, cancelled context).
func (c *Client) FetchComments(ctx context.Context, url string, limit int, waitTime time.Duration) (Result, error) {
	scrapeID, err := c.ids.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("new scrape id: %w", err)
	}
	startedAt := c.clock.Now().UTC()
	mobileURL := MobileURL(url)

	res := newResult(scrapeID, url, startedAt)

	c.emit(progress.Event{
		ScrapeID: scrapeID,
		TS:       startedAt,
		Stage:    progress.StageScrapeStart,
		URL:      mobileURL,
	})

	run, err := c.collect(ctx, scrapeID, mobileURL, limit, waitTime)
	res.FetchedAt = c.clock.Now().UTC()
	res.DurationSeconds = res.FetchedAt.Sub(startedAt).Seconds()
	res.ScrollRounds = run.rounds
	res.Screenshots = run.screenshots
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("scrape cancelled: %w", ctx.Err())
		}
		res.Status = StatusFailed
		res.Error = err.Error()
		c.logger.Error("scrape failed",
			zap.String("scrape_id", scrapeID),
			zap.String("url", mobileURL),
			zap.Error(err),
		)
		c.emit(progress.Event{
			ScrapeID: scrapeID,
			TS:       res.FetchedAt,
			Stage:    progress.StageScrapeError,
			URL:      mobileURL,
			Dur:      res.FetchedAt.Sub(startedAt),
			Note:     err.Error(),
		})
		return res, nil
	}

	if run.comments != nil {
		res.Comments = run.comments
	}
	res.TotalCount = len(run.comments)
	res.Success = true
	if len(run.comments) == 0 {
		res.Status = StatusNoComments
	} else {
		res.Status = StatusCompleted
	}
	c.logger.Info("scrape completed",
		zap.String("scrape_id", scrapeID),
		zap.String("status", string(res.Status)),
		zap.Int("comments", res.TotalCount),
		zap.Int("scroll_rounds", res.ScrollRounds),
		zap.Float64("duration_seconds", res.DurationSeconds),
	)
	c.emit(progress.Event{
		ScrapeID:      scrapeID,
		TS:            res.FetchedAt,
		Stage:         progress.StageScrapeDone,
		URL:           mobileURL,
		TotalComments: res.TotalCount,
		Dur:           res.FetchedAt.Sub(startedAt),
	})
	return res, nil
}

// newResult seeds a Result for a scrape run. Comments starts as an empty
// slice, never nil, so failure payloads serialize "comments": [] rather than
// null.
func newResult(scrapeID, url string, startedAt time.Time) Result {
	return Result{
		ScrapeID:  scrapeID,
		URL:       url,
		Status:    StatusStarted,
		StartedAt: startedAt,
		Method:    MethodBrowserIncremental,
		Comments:  []Comment{},
	}
}

type collectRun struct {
	comments    []Comment
	rounds      int
	screenshots []string
}

func (c *Client) collect(ctx context.Context, scrapeID, url string, limit int, waitTime time.Duration) (collectRun, error) {
	var run collectRun

	tabCtx, closeTab, err := c.session.NewTab(ctx)
	if err != nil {
		return run, fmt.Errorf("open tab: %w", err)
	}
	defer closeTab()

	// The navigation timeout covers reaching the page, nothing more. The
	// scroll loop below is bounded by the caller's context and MaxScrolls.
	navCtx, cancelNav := context.WithTimeout(tabCtx, c.session.NavTimeout())
	err = chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	cancelNav()
	if err != nil {
		return run, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := sleepCtx(tabCtx, waitTime); err != nil {
		return run, err
	}
	run.screenshots = c.capture(tabCtx, scrapeID, "01_initial_load.png", run.screenshots, false)

	seen := make(map[string]struct{})
	idle := 0
	for round := 1; round <= c.cfg.MaxScrolls; round++ {
		run.rounds = round

		var visible int
		if err := chromedp.Run(tabCtx,
			chromedp.Evaluate(fmt.Sprintf(scrollScript, selectorsJSON()), &visible),
		); err != nil {
			return run, fmt.Errorf("scroll round %d: %w", round, err)
		}
		if err := sleepCtx(tabCtx, c.cfg.ScrollInterval); err != nil {
			return run, err
		}

		var html string
		if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
			return run, fmt.Errorf("snapshot round %d: %w", round, err)
		}
		parsed, err := c.parser.ExtractComments(html, limit)
		if err != nil {
			return run, fmt.Errorf("parse round %d: %w", round, err)
		}
		var added int
		run.comments, added = mergeComments(run.comments, parsed, seen, limit)

		c.emit(progress.Event{
			ScrapeID:      scrapeID,
			TS:            c.clock.Now().UTC(),
			Stage:         progress.StageScrollRound,
			URL:           url,
			Round:         round,
			NewComments:   added,
			TotalComments: len(run.comments),
		})
		c.logger.Debug("scroll round",
			zap.String("scrape_id", scrapeID),
			zap.Int("round", round),
			zap.Int("visible_nodes", visible),
			zap.Int("new_comments", added),
			zap.Int("total_comments", len(run.comments)),
		)

		if added > 0 {
			name := fmt.Sprintf("02_scroll_%02d_found_%d_comments.png", round, len(run.comments))
			run.screenshots = c.capture(tabCtx, scrapeID, name, run.screenshots, false)
			idle = 0
		} else {
			idle++
		}
		if limit > 0 && len(run.comments) >= limit {
			break
		}
		if idle >= c.cfg.IdleRounds {
			c.logger.Debug("comment stream idle, stopping",
				zap.String("scrape_id", scrapeID),
				zap.Int("idle_rounds", idle),
			)
			break
		}
	}

	run.screenshots = c.capture(tabCtx, scrapeID, "03_final_state.png", run.screenshots, true)

	// One last extraction over the settled DOM catches comments rendered
	// after the final scroll.
	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return run, fmt.Errorf("final snapshot: %w", err)
	}
	parsed, err := c.parser.ExtractComments(html, limit)
	if err != nil {
		return run, fmt.Errorf("final parse: %w", err)
	}
	run.comments, _ = mergeComments(run.comments, parsed, seen, limit)
	return run, nil
}

// capture stores a screenshot in the blob store, logging failures instead of
// aborting the scrape. Screenshots are best-effort debug artifacts.
func (c *Client) capture(ctx context.Context, scrapeID, name string, uris []string, full bool) []string {
	if !c.cfg.Screenshots || c.blobs == nil {
		return uris
	}
	var buf []byte
	var err error
	if full {
		err = chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90))
	} else {
		err = chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf))
	}
	if err != nil {
		c.logger.Warn("screenshot capture failed",
			zap.String("scrape_id", scrapeID),
			zap.String("name", name),
			zap.Error(err),
		)
		return uris
	}
	path := fmt.Sprintf("%s%s/%s", c.cfg.BlobPrefix, scrapeID, name)
	uri, err := c.blobs.PutObject(ctx, path, "image/png", buf)
	if err != nil {
		c.logger.Warn("screenshot upload failed",
			zap.String("scrape_id", scrapeID),
			zap.String("path", path),
			zap.Error(err),
		)
		return uris
	}
	return append(uris, uri)
}

func (c *Client) emit(evt progress.Event) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(evt)
}

// mergeComments appends comments from batch that have not been seen before,
// keyed by DedupeKey, stopping once limit unique comments are held. The
// incremental DOM snapshots overlap heavily so most of each batch is dropped.
func mergeComments(have []Comment, batch []Comment, seen map[string]struct{}, limit int) ([]Comment, int) {
	added := 0
	for _, cm := range batch {
		if cm.ID == "" && cm.Author == "" && cm.Text == "" {
			continue
		}
		key := cm.DedupeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		have = append(have, cm)
		added++
		if limit > 0 && len(have) >= limit {
			break
		}
	}
	return have, added
}

func selectorsJSON() string {
	quoted := make([]string, len(commentSelectors))
	for i, s := range commentSelectors {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scrape wait interrupted: %w", ctx.Err())
	}
}
