// Package app wires the pipeline together: scrape, library sync, linking,
// resolution extraction, and monthly reports. Every stage is safe to rerun;
// a full pass over already-ingested data converges instead of duplicating.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kgodwin/civtrace/internal/browser"
	"github.com/kgodwin/civtrace/internal/config"
	"github.com/kgodwin/civtrace/internal/library"
	"github.com/kgodwin/civtrace/internal/linker"
	"github.com/kgodwin/civtrace/internal/ratelimit"
	"github.com/kgodwin/civtrace/internal/reports"
	"github.com/kgodwin/civtrace/internal/resolutions"
	"github.com/kgodwin/civtrace/internal/resolver"
	"github.com/kgodwin/civtrace/internal/scraper"
	"github.com/kgodwin/civtrace/internal/store"
	"github.com/kgodwin/civtrace/internal/summarizer"
	"github.com/kgodwin/civtrace/internal/types"
)

// Fetcher is the slice of the scraper the pipeline drives.
type Fetcher interface {
	ListEvents(ctx context.Context) ([]int, error)
	FetchDetails(ctx context.Context, eventID int) (*types.Meeting, []types.AgendaItem, error)
	Discover(ctx context.Context, start, end, maxProbes int) ([]int, error)
}

// ItemFailure records one event that failed within an otherwise
// successful batch.
type ItemFailure struct {
	EventID int
	Reason  string
}

// BatchResult summarizes one scrape batch. Per-event failures are
// collected here, never propagated as batch errors.
type BatchResult struct {
	RunID     string
	Succeeded int
	Failed    int
	Failures  []ItemFailure
}

// App holds the assembled pipeline.
type App struct {
	cfg     *config.Config
	store   *store.Store
	fetcher Fetcher
	library *library.Client
	reports *reports.Runner
}

// Option configures an App.
type Option func(*App)

// WithFetcher overrides the portal fetcher (used by tests).
func WithFetcher(f Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// New assembles the pipeline from config. The rate limiter is shared
// across the portal scraper, the library client, and the report resolver
// so per-host pacing holds regardless of which stage is talking.
func New(cfg *config.Config, s *store.Store, opts ...Option) *App {
	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	sc := scraper.New(cfg.Portal.BaseURL, cfg.Scraping.Headless, limiter,
		time.Duration(cfg.Scraping.PageTimeoutSecs)*time.Second)

	var sum summarizer.Summarizer = summarizer.Disabled{}
	if cfg.Summarize.Enabled {
		sum = summarizer.NewAnthropic(cfg.Summarize.APIKey, cfg.Summarize.Model)
	}

	memo := resolver.NewMemo(resolver.New(limiter, browser.DefaultUserAgent))

	reportsBase := cfg.Reports.BaseURL
	if reportsBase == "" {
		reportsBase = cfg.Portal.BaseURL
	}

	a := &App{
		cfg:     cfg,
		store:   s,
		fetcher: sc,
		library: library.New(cfg.Library.BaseURL, browser.DefaultUserAgent, limiter),
		reports: reports.New(memo, s, sum, reportsBase, cfg.Reports.Kinds, cfg.Reports.NewestFirst),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RunScrape lists the portal's current events and scrapes each one.
func (a *App) RunScrape(ctx context.Context) (*BatchResult, error) {
	ids, err := a.fetcher.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	log.Printf("[app] portal lists %d events", len(ids))
	return a.scrapeEvents(ctx, ids)
}

// RunDiscover probes the configured id range for archived events the
// listing no longer links to, then scrapes whatever it finds.
func (a *App) RunDiscover(ctx context.Context) (*BatchResult, error) {
	ids, err := a.fetcher.Discover(ctx, a.cfg.Portal.IDFloor, a.cfg.Portal.IDCeiling, a.cfg.Portal.MaxProbes)
	if err != nil {
		return nil, fmt.Errorf("discovering events: %w", err)
	}
	log.Printf("[app] discovery found %d events", len(ids))
	return a.scrapeEvents(ctx, ids)
}

// scrapedEvent is one fetch outcome awaiting the write phase.
type scrapedEvent struct {
	eventID int
	meeting *types.Meeting
	items   []types.AgendaItem
	err     error
}

// scrapeEvents fetches event pages concurrently, then writes results from
// a single goroutine. One bad event records a failure and moves on; only
// context cancellation aborts the batch.
func (a *App) scrapeEvents(ctx context.Context, ids []int) (*BatchResult, error) {
	result := &BatchResult{RunID: uuid.NewString()}
	if len(ids) == 0 {
		return result, nil
	}

	results := make([]scrapedEvent, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Scraping.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			meeting, items, err := a.fetcher.FetchDetails(gctx, id)
			results[i] = scrapedEvent{eventID: id, meeting: meeting, items: items, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	// Write phase: one goroutine, the store's single writer.
	for _, r := range results {
		if r.err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ItemFailure{EventID: r.eventID, Reason: r.err.Error()})
			log.Printf("[app] run %s: %v", result.RunID, r.err)
			if err := a.store.RecordFailure("scrape", fmt.Sprintf("evt-%d", r.eventID), r.err.Error()); err != nil {
				log.Printf("[app] recording failure: %v", err)
			}
			continue
		}

		if err := a.store.SaveMeeting(r.meeting); err != nil {
			return result, fmt.Errorf("saving meeting %s: %w", r.meeting.ID, err)
		}
		if err := a.store.ReplaceAgendaItems(r.meeting.ID, r.items); err != nil {
			return result, fmt.Errorf("saving agenda for %s: %w", r.meeting.ID, err)
		}
		result.Succeeded++
	}

	log.Printf("[app] run %s: %d scraped, %d failed", result.RunID, result.Succeeded, result.Failed)
	return result, nil
}

// RunLibrary syncs the codified-ordinance library.
func (a *App) RunLibrary(ctx context.Context) (int, error) {
	return a.library.Sync(ctx, a.store, a.cfg.Library.MaxPages)
}

// RunLink recomputes ordinance links and lifecycle statuses from the
// current agenda corpus.
func (a *App) RunLink(ctx context.Context) (linker.Result, error) {
	return linker.New(a.store).Link(ctx)
}

// RunResolutions materializes resolution records from the current agenda
// corpus.
func (a *App) RunResolutions(ctx context.Context) (resolutions.Result, error) {
	return resolutions.New(a.store).Extract(ctx, "")
}

// RunReports resolves the configured monthly report kinds.
func (a *App) RunReports(ctx context.Context) (reports.Result, error) {
	return a.reports.Run(ctx, time.Now(), a.cfg.Reports.MonthsBack)
}

// RunAll executes the full pipeline in dependency order. A stage failure
// is collected and the remaining stages still run; reconciliation over
// partial data converges on the next pass.
func (a *App) RunAll(ctx context.Context) error {
	var errs []error

	if _, err := a.RunScrape(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scrape: %w", err))
	}
	if ctx.Err() != nil {
		return errors.Join(append(errs, ctx.Err())...)
	}

	if n, err := a.RunLibrary(ctx); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	} else {
		log.Printf("[app] library synced %d ordinances", n)
	}
	if ctx.Err() != nil {
		return errors.Join(append(errs, ctx.Err())...)
	}

	if _, err := a.RunLink(ctx); err != nil {
		errs = append(errs, fmt.Errorf("link: %w", err))
	}
	if _, err := a.RunResolutions(ctx); err != nil {
		errs = append(errs, fmt.Errorf("resolutions: %w", err))
	}
	if ctx.Err() != nil {
		return errors.Join(append(errs, ctx.Err())...)
	}

	if _, err := a.RunReports(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reports: %w", err))
	}

	return errors.Join(errs...)
}
