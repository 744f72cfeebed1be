package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/browser"
)

// cacheDirStep ensures the managed browser cache directory exists.
type cacheDirStep struct {
	dir string
}

func (s *cacheDirStep) Name() string { return "browser cache directory" }

func (s *cacheDirStep) Check(context.Context) (bool, error) {
	if s.dir == "" {
		return true, nil
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s exists but is not a directory", s.dir)
	}
	return true, nil
}

func (s *cacheDirStep) Run(context.Context) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	return nil
}

func (s *cacheDirStep) Remedy() string {
	return fmt.Sprintf("create the directory manually: mkdir -p %s", s.dir)
}

// locateBrowserStep resolves a usable browser executable. There is no act
// phase that installs anything; discovery either succeeds or the operator
// installs a browser by hand.
type locateBrowserStep struct {
	cfg Config
	out *string
}

func (s *locateBrowserStep) Name() string { return "locate browser executable" }

func (s *locateBrowserStep) Check(context.Context) (bool, error) {
	path, err := browser.Locate(s.cfg.ExecPath, s.cfg.Channel, s.cfg.CacheDir)
	if err != nil {
		if s.cfg.ExecPath == "" {
			// Nothing found anywhere; let Run produce the fatal error.
			return false, nil
		}
		return false, err
	}
	*s.out = path
	return true, nil
}

func (s *locateBrowserStep) Run(context.Context) error {
	return browser.ErrNoBrowser
}

func (s *locateBrowserStep) Remedy() string {
	return fmt.Sprintf("%s (or set browser.exec_path to an installed browser binary)", InstallCommand)
}

// cookiesStep verifies the configured cookies file parses. A missing or
// malformed file only warns; the service can scrape unauthenticated.
type cookiesStep struct {
	path   string
	logger *zap.Logger
}

func (s *cookiesStep) Name() string { return "session cookies file" }

func (s *cookiesStep) Check(context.Context) (bool, error) {
	if s.path == "" {
		return true, nil
	}
	cookies, err := browser.LoadCookiesFile(s.path)
	if err != nil {
		s.logger.Warn("cookies file unusable, scrapes will run unauthenticated",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return true, nil
	}
	s.logger.Info("cookies file verified",
		zap.String("path", s.path),
		zap.Int("cookies", len(cookies)),
	)
	return true, nil
}

func (s *cookiesStep) Run(context.Context) error { return nil }

func (s *cookiesStep) Remedy() string {
	return fmt.Sprintf("export Facebook session cookies to %s as \"name value\" lines", s.path)
}

// launchProbeStep starts the resolved browser headlessly and verifies it
// answers the DevTools protocol within the timeout.
type launchProbeStep struct {
	exec    *string
	timeout time.Duration
}

func (s *launchProbeStep) Name() string { return "browser launch probe" }

func (s *launchProbeStep) Check(ctx context.Context) (bool, error) {
	if *s.exec == "" {
		return false, fmt.Errorf("no browser executable resolved")
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(*s.exec),
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(probeCtx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx); err != nil {
		return false, fmt.Errorf("browser did not answer CDP: %w", err)
	}
	return true, nil
}

func (s *launchProbeStep) Run(context.Context) error {
	return fmt.Errorf("browser launch probe cannot be repaired automatically")
}

func (s *launchProbeStep) Remedy() string {
	return fmt.Sprintf("verify the browser starts headlessly; reinstall with: %s", InstallCommand)
}
