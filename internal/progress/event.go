// Package progress defines the event structures emitted during scrape runs.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageScrapeStart Stage = "SCRAPE_START"
	StageScrollRound Stage = "SCROLL_ROUND"
	StageScrapeDone  Stage = "SCRAPE_DONE"
	StageScrapeError Stage = "SCRAPE_ERROR"
)

// Event captures a single milestone of a scrape run.
type Event struct {
	// ScrapeID uniquely identifies the run.
	ScrapeID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is the post URL being scraped; it should not contain credentials.
	URL string
	// Round is the scroll round number for SCROLL_ROUND events.
	Round int
	// NewComments counts comments first seen in this round.
	NewComments int
	// TotalComments is the running unique comment count.
	TotalComments int
	// Dur captures wall time for completion events.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.ScrapeID == "" {
		return errors.New("scrape id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageScrapeStart, StageScrapeDone, StageScrapeError:
	case StageScrollRound:
		if e.Round < 1 {
			return errors.New("scroll round must be >= 1")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
