// Package browser manages the shared headless Chrome session via chromedp.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// Config controls browser launch and navigation behavior.
type Config struct {
	// ExecPath points at a specific browser binary. Takes precedence over Channel.
	ExecPath string
	// Channel selects a named browser variant ("chrome", "chromium", "msedge", ...).
	Channel string
	// CacheDir is enumerated for managed browser builds when neither ExecPath
	// nor Channel resolve.
	CacheDir string
	// UserDataDir enables a persistent profile when set.
	UserDataDir string
	// CookiesFile holds "name value" lines loaded into the facebook.com domain.
	CookiesFile string
	Headless    bool
	UserAgent   string
	NavTimeout  time.Duration
	WindowWidth int
	WindowHeight int
}

// Session owns the long-lived allocator and browser contexts. Tabs are
// created per scrape and torn down afterwards; the browser process itself
// survives across scrapes.
type Session struct {
	cfg         Config
	execPath    string
	cookies     []Cookie
	logger      *zap.Logger
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

// New launches a browser and verifies it answers CDP before returning.
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1920
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = 1080
	}

	execPath, err := Locate(cfg.ExecPath, cfg.Channel, cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("locate browser: %w", err)
	}
	if cfg.ExecPath != "" && cfg.Channel != "" {
		logger.Warn("browser executable path takes precedence over channel",
			zap.String("exec_path", cfg.ExecPath),
			zap.String("channel", cfg.Channel),
		)
	}

	var cookies []Cookie
	if cfg.CookiesFile != "" {
		cookies, err = LoadCookiesFile(cfg.CookiesFile)
		if err != nil {
			logger.Warn("cookies file unusable, continuing unauthenticated", zap.Error(err))
		} else {
			logger.Info("loaded session cookies", zap.Int("count", len(cookies)))
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		logger.Info("using persistent browser profile", zap.String("user_data_dir", cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}
	logger.Info("browser session started",
		zap.String("exec_path", execPath),
		zap.Bool("headless", cfg.Headless),
	)

	return &Session{
		cfg:         cfg,
		execPath:    execPath,
		cookies:     cookies,
		logger:      logger,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}, nil
}

// ExecPath reports the resolved browser binary.
func (s *Session) ExecPath() string {
	return s.execPath
}

// Close tears down the browser process and allocator.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.browserStop()
	s.allocCancel()
}

// NavTimeout reports the per-navigation deadline. Callers apply it to
// individual navigations, not to the tab as a whole.
func (s *Session) NavTimeout() time.Duration {
	return s.cfg.NavTimeout
}

// NewTab opens a tab with cookies and user agent applied. The returned cancel
// closes the tab. Only the tab setup is bounded by the navigation timeout; the
// returned context inherits just the caller's cancellation, since a scroll
// loop on a comment-heavy post legitimately outlives any single navigation.
func (s *Session) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	tabCtx, cancel := s.openTab(ctx)

	setupCtx, cancelSetup := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelSetup()
	if err := chromedp.Run(setupCtx, s.setupAction()); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("tab setup: %w", err)
	}
	return tabCtx, cancel, nil
}

// openTab derives the tab context from the browser context and forwards the
// caller's cancellation into it. It carries no deadline of its own.
func (s *Session) openTab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	stopForward := forwardCancel(ctx, cancelTab)
	return tabCtx, func() {
		stopForward()
		cancelTab()
	}
}

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		for _, c := range s.cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
