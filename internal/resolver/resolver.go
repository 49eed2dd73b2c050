// Package resolver fetches logical documents by trying an ordered list of
// candidate URLs. The city changed its report naming conventions several
// times over the years, so a single template is never enough; the first
// candidate that answers wins and its URL is what callers persist.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kgodwin/civtrace/internal/ratelimit"
)

// NotFoundError reports that no candidate resolved. This is an expected
// outcome (a month may legitimately have no report yet), not a failure to
// propagate loudly; check for it with IsNotFound.
type NotFoundError struct {
	Kind   string
	Period string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no document found for %s %s", e.Kind, e.Period)
}

// IsNotFound reports whether err is a resolver NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Document is a successfully resolved payload paired with the candidate
// URL that produced it.
type Document struct {
	URL         string
	Body        []byte
	ContentType string
}

// Resolver tries candidate URLs sequentially over the network.
type Resolver struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	timeout   time.Duration
	maxBody   int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithClient overrides the HTTP client (used by tests).
func WithClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// New creates a resolver. The limiter paces requests per host and may be
// shared with other fetchers.
func New(limiter *ratelimit.Limiter, userAgent string, opts ...Option) *Resolver {
	r := &Resolver{
		client:    &http.Client{},
		limiter:   limiter,
		userAgent: userAgent,
		timeout:   30 * time.Second,
		maxBody:   32 << 20, // a packet PDF can run large
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve tries each candidate in order and returns the first success.
// Any non-2xx status, timeout, or transport error means "try next", never
// fatal. When all candidates fail it returns a NotFoundError carrying the
// kind and period for the caller's bookkeeping.
func (r *Resolver) Resolve(ctx context.Context, kind, period string, candidates []string) (*Document, error) {
	for _, candidate := range candidates {
		doc, err := r.fetch(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[resolver] %s %s: candidate %s: %v", kind, period, candidate, err)
			continue
		}
		return doc, nil
	}
	return nil, &NotFoundError{Kind: kind, Period: period}
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad candidate url: %w", err)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, u.Host); err != nil {
			return nil, err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return &Document{
		URL:         rawURL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Memo wraps a Resolver with per-(kind, period) memoization so multiple
// consumers of the same document within one run share a single network
// fetch. Lifetime is one pipeline run; there is no cross-run cache.
type Memo struct {
	r *Resolver

	mu    sync.Mutex
	cache map[string]memoEntry
}

type memoEntry struct {
	doc *Document
	err error
}

// NewMemo creates a memoizing wrapper around r.
func NewMemo(r *Resolver) *Memo {
	return &Memo{r: r, cache: make(map[string]memoEntry)}
}

// Resolve behaves like Resolver.Resolve but returns the cached outcome,
// including a cached NotFound, for a (kind, period) seen earlier this run.
func (m *Memo) Resolve(ctx context.Context, kind, period string, candidates []string) (*Document, error) {
	key := kind + "|" + period

	m.mu.Lock()
	if e, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return e.doc, e.err
	}
	m.mu.Unlock()

	doc, err := m.r.Resolve(ctx, kind, period, candidates)
	if err != nil && !IsNotFound(err) {
		// Transient failures are not memoized; a later consumer may succeed.
		return nil, err
	}

	m.mu.Lock()
	m.cache[key] = memoEntry{doc: doc, err: err}
	m.mu.Unlock()

	return doc, err
}
