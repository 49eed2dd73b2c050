package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"
)

// probeResult classifies one probed id.
type probeResult int

const (
	probeValid probeResult = iota
	probeInvalid
	probeInconclusive
)

// Discover probes sequential event ids between start and end (inclusive)
// and returns the ids that render a real meeting. The portal has no bulk
// listing for its archive, so this is how backfills find old events.
//
// Probing is bounded twice over: by the id range and by maxProbes.
// Isolated network failures classify as inconclusive and are skipped,
// never reported as invalid.
func (s *Scraper) Discover(ctx context.Context, start, end, maxProbes int) ([]int, error) {
	if start <= 0 || end < start {
		return nil, fmt.Errorf("invalid id range [%d, %d]", start, end)
	}
	if maxProbes <= 0 {
		return nil, fmt.Errorf("max probes must be positive")
	}

	var valid []int
	probes := 0
	inconclusive := 0

	for id := start; id <= end; id++ {
		if probes >= maxProbes {
			log.Printf("[discover] probe budget (%d) exhausted at id %d", maxProbes, id)
			break
		}
		if ctx.Err() != nil {
			return valid, ctx.Err()
		}
		probes++

		result := s.probeWithRetry(ctx, id)
		switch result {
		case probeValid:
			valid = append(valid, id)
		case probeInconclusive:
			inconclusive++
			log.Printf("[discover] id %d inconclusive, skipping", id)
		}
	}

	log.Printf("[discover] probed %d ids: %d valid, %d inconclusive", probes, len(valid), inconclusive)
	return valid, nil
}

// probeWithRetry retries a transient failure once with backoff before
// giving up and calling the probe inconclusive.
func (s *Scraper) probeWithRetry(ctx context.Context, id int) probeResult {
	var result probeResult

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
	), 1), ctx)

	err := backoff.Retry(func() error {
		r, err := s.probe(ctx, id)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, policy)

	if err != nil {
		return probeInconclusive
	}
	return result
}

// probe renders one event page and classifies it by shape: a real event
// header means valid, the portal's not-found shell means invalid.
func (s *Scraper) probe(ctx context.Context, id int) (probeResult, error) {
	if err := s.wait(ctx); err != nil {
		return probeInconclusive, err
	}

	browserCtx, cancel := s.newBrowserCtx(ctx)
	defer cancel()

	var hasHeader, hasNotFound bool
	err := chromedp.Run(browserCtx,
		prepare(),
		chromedp.Navigate(fmt.Sprintf("%s/event/%d", s.baseURL, id)),
		// Either shell renders quickly; poll for whichever appears.
		chromedp.Poll(`
			document.querySelector('`+EventHeader+`') !== null ||
			document.querySelector('`+NotFoundShell+`') !== null
		`, nil, chromedp.WithPollingTimeout(20*time.Second)),
		chromedp.Evaluate(`document.querySelector('`+EventHeader+`') !== null`, &hasHeader),
		chromedp.Evaluate(`document.querySelector('`+NotFoundShell+`') !== null`, &hasNotFound),
	)
	if err != nil {
		return probeInconclusive, err
	}

	switch {
	case hasHeader:
		return probeValid, nil
	case hasNotFound:
		return probeInvalid, nil
	default:
		return probeInconclusive, nil
	}
}
