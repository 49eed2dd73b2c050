// Package reports fetches the city's monthly PDF reports (permits,
// businesses, budget, audit) through the fallback resolver and records
// them with an inferred document date.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kgodwin/civtrace/internal/dates"
	"github.com/kgodwin/civtrace/internal/resolver"
	"github.com/kgodwin/civtrace/internal/store"
	"github.com/kgodwin/civtrace/internal/summarizer"
	"github.com/kgodwin/civtrace/internal/types"
)

// Result aggregates one reports pass. Missing months are expected, not
// failures.
type Result struct {
	Fetched int
	Missing int
	Failed  int
	Skipped int // already stored with a working URL
}

// Runner drives report resolution for a set of kinds and periods.
type Runner struct {
	memo        *resolver.Memo
	store       *store.Store
	summarize   summarizer.Summarizer
	baseURL     string
	kinds       []string
	newestFirst bool
}

// New creates a reports runner. The memoizing resolver is shared so other
// consumers of the same period's documents reuse the fetch.
func New(memo *resolver.Memo, s *store.Store, sum summarizer.Summarizer, baseURL string, kinds []string, newestFirst bool) *Runner {
	return &Runner{
		memo:        memo,
		store:       s,
		summarize:   sum,
		baseURL:     baseURL,
		kinds:       kinds,
		newestFirst: newestFirst,
	}
}

// Run resolves every configured kind for the trailing monthsBack months.
func (r *Runner) Run(ctx context.Context, now time.Time, monthsBack int) (Result, error) {
	var res Result

	// Anchor to the first of the month before stepping back. AddDate
	// normalizes nonexistent days, so "May 31 minus one month" would land
	// on May 1 and April would never be visited.
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for back := 0; back < monthsBack; back++ {
		month := anchor.AddDate(0, -back, 0)
		for _, kind := range r.kinds {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}

			switch err := r.runOne(ctx, kind, month.Year(), month.Month()); {
			case err == nil:
				res.Fetched++
			case resolver.IsNotFound(err):
				// A month may legitimately have no report yet.
				res.Missing++
			case errors.Is(err, errAlreadyStored):
				res.Skipped++
			default:
				res.Failed++
				period := resolver.Period(month.Year(), month.Month())
				log.Printf("[reports] %s %s: %v", kind, period, err)
				if err := r.store.RecordFailure("reports", kind+"/"+period, err.Error()); err != nil {
					log.Printf("[reports] recording failure: %v", err)
				}
			}
		}
	}

	log.Printf("[reports] %d fetched, %d missing, %d skipped, %d failed",
		res.Fetched, res.Missing, res.Skipped, res.Failed)
	return res, nil
}

var errAlreadyStored = errors.New("already stored")

func (r *Runner) runOne(ctx context.Context, kind string, year int, month time.Month) error {
	period := resolver.Period(year, month)

	existing, err := r.store.GetDocument(kind, period)
	if err != nil {
		return err
	}
	if existing != nil {
		return errAlreadyStored
	}

	candidates := resolver.ReportCandidates(r.baseURL, kind, year, month, r.newestFirst)

	// One backoff retry smooths over the document host's habit of
	// dropping the first connection after idle periods.
	var doc *resolver.Document
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
	), 1), ctx)
	err = backoff.Retry(func() error {
		var rerr error
		doc, rerr = r.memo.Resolve(ctx, kind, period, candidates)
		if rerr != nil && resolver.IsNotFound(rerr) {
			return backoff.Permanent(rerr)
		}
		return rerr
	}, policy)
	if err != nil {
		return err
	}

	// Summarize after a successful resolve; the summary also feeds the
	// date cascade's second rule.
	summary := ""
	if r.summarize != nil {
		summary, err = r.summarize.Summarize(ctx, kind, period, string(doc.Body))
		if err != nil {
			// Summaries are garnish; the document row still lands.
			log.Printf("[reports] summarize %s %s: %v", kind, period, err)
			summary = ""
		}
	}

	docDate, dateSource := dates.Infer(pathOf(doc.URL), summary, year)

	return r.store.SaveDocument(&types.Document{
		Kind:       kind,
		Period:     period,
		URL:        doc.URL,
		Title:      fmt.Sprintf("%s report %s", titleCase(kind), period),
		DocDate:    &docDate,
		DateSource: dateSource,
		Summary:    summary,
		FetchedAt:  time.Now(),
	})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathOf returns the URL path for date inference. The whole path, not
// just the basename: one naming convention keeps the year in a directory
// segment ("/docs/2025/permits07.pdf").
func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
