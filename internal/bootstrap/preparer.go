// Package bootstrap verifies the scraping runtime before the service starts.
//
// The preparer runs an ordered list of idempotent steps. Every step has a
// check phase and an act phase; a step whose check already passes performs no
// work, so a second run on a prepared machine is a sequence of no-ops.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/browser"
)

// Step is one unit of environment preparation.
type Step interface {
	// Name identifies the step in logs and error messages.
	Name() string
	// Check reports whether the step's goal is already satisfied.
	Check(ctx context.Context) (bool, error)
	// Run performs the step's work. It is only called when Check returns false.
	Run(ctx context.Context) error
	// Remedy returns a manual remediation hint shown when the step fails.
	Remedy() string
}

// StepError wraps a step failure together with its remediation hint.
type StepError struct {
	Step   string
	Err    error
	Remedy string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("prepare step %q failed: %v\nremediation: %s", e.Step, e.Err, e.Remedy)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Config selects what the preparer verifies.
type Config struct {
	CacheDir     string
	ExecPath     string
	Channel      string
	CookiesFile  string
	ProbeTimeout time.Duration
}

// Preparer runs the environment verification sequence.
type Preparer struct {
	steps  []Step
	logger *zap.Logger

	// browserPath is filled in by the locate step for later steps and callers.
	browserPath string
}

// New assembles the standard step list for the given config.
func New(cfg Config, logger *zap.Logger) *Preparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}
	cfg.CacheDir = browser.ExpandUser(cfg.CacheDir)
	cfg.ExecPath = browser.ExpandUser(cfg.ExecPath)
	cfg.CookiesFile = browser.ExpandUser(cfg.CookiesFile)
	p := &Preparer{logger: logger}
	p.steps = []Step{
		&cacheDirStep{dir: cfg.CacheDir},
		&locateBrowserStep{cfg: cfg, out: &p.browserPath},
		&cookiesStep{path: cfg.CookiesFile, logger: logger},
		&launchProbeStep{exec: &p.browserPath, timeout: cfg.ProbeTimeout},
	}
	return p
}

// Run executes every step in order, stopping at the first fatal failure.
// Returns the resolved browser executable path on success.
func (p *Preparer) Run(ctx context.Context) (string, error) {
	for _, step := range p.steps {
		if err := p.runStep(ctx, step); err != nil {
			return "", err
		}
	}
	return p.browserPath, nil
}

func (p *Preparer) runStep(ctx context.Context, step Step) error {
	ok, err := step.Check(ctx)
	if err != nil {
		return &StepError{Step: step.Name(), Err: err, Remedy: step.Remedy()}
	}
	if ok {
		p.logger.Info("prepare step already satisfied", zap.String("step", step.Name()))
		return nil
	}
	p.logger.Info("prepare step acting", zap.String("step", step.Name()))
	if err := step.Run(ctx); err != nil {
		return &StepError{Step: step.Name(), Err: err, Remedy: step.Remedy()}
	}
	// Re-check so a step cannot silently claim success.
	ok, err = step.Check(ctx)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("verification still failing after act phase")
		}
		return &StepError{Step: step.Name(), Err: err, Remedy: step.Remedy()}
	}
	return nil
}

// BrowserPath reports the executable resolved by the locate step. Empty until
// Run has passed that step.
func (p *Preparer) BrowserPath() string {
	return p.browserPath
}

// InstallCommand is the literal command suggested to operators when no
// browser runtime can be found or launched.
const InstallCommand = "apt-get install -y chromium"
