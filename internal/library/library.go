// Package library scrapes the city's codified-ordinance library: static
// paginated HTML listing ordinance number, title, and a document link
// that encodes an internal node id. Unlike the meeting portal this source
// needs no browser; plain GETs and selector parsing are enough.
package library

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kgodwin/civtrace/internal/ratelimit"
)

// Entry is one ordinance row from the library listing.
type Entry struct {
	Number string
	Title  string
	NodeID string
}

// Saver is the slice of the store the library sync writes through.
type Saver interface {
	SaveAuthoritativeOrdinance(number, title, sourceURL string) error
}

// Client fetches and parses library pages.
type Client struct {
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
}

// New creates a library client.
func New(baseURL, userAgent string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// FetchPage retrieves one listing page and reports whether a next page
// exists.
func (c *Client) FetchPage(ctx context.Context, page int) ([]Entry, bool, error) {
	pageURL := fmt.Sprintf("%s/ordinances?page=%d", c.baseURL, page)

	if c.limiter != nil {
		u, _ := url.Parse(pageURL)
		if err := c.limiter.Wait(ctx, u.Host); err != nil {
			return nil, false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching library page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("library page %d: status %d", page, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("parsing library page %d: %w", page, err)
	}

	entries := ParseListing(doc)
	hasNext := doc.Find(`a[rel="next"]`).Length() > 0

	return entries, hasNext, nil
}

// ParseListing extracts ordinance rows from a parsed listing page.
// Exposed separately so parsing is testable against fixture HTML without
// a server.
func ParseListing(doc *goquery.Document) []Entry {
	var entries []Entry
	doc.Find("table.ordinance-list tr").Each(func(_ int, row *goquery.Selection) {
		number := strings.TrimSpace(row.Find("td.ord-number").Text())
		title := strings.TrimSpace(row.Find("td.ord-title").Text())
		if number == "" {
			return // header row or filler
		}

		href, _ := row.Find("td.ord-doc a").Attr("href")
		entries = append(entries, Entry{
			Number: number,
			Title:  title,
			NodeID: nodeIDFromHref(href),
		})
	})
	return entries
}

// nodeIDFromHref pulls the internal node identifier out of a document
// link like "/view.php?node=4821" or "/files/node/4821".
func nodeIDFromHref(href string) string {
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		if node := u.Query().Get("node"); node != "" {
			return node
		}
	}
	if i := strings.Index(href, "/node/"); i >= 0 {
		rest := href[i+len("/node/"):]
		if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
			rest = rest[:cut]
		}
		return rest
	}
	return ""
}

// PDFURL builds the stable document URL for a library node id.
func (c *Client) PDFURL(nodeID string) string {
	if nodeID == "" {
		return ""
	}
	return fmt.Sprintf("%s/files/%s.pdf", c.baseURL, nodeID)
}

// Sync walks the listing pages (up to maxPages) and upserts every entry
// as an authoritative ordinance. Provisional rows created earlier from
// agenda references get their titles corrected here, keyed by number, with
// no meeting re-scrape required. Returns the number of entries saved.
func (c *Client) Sync(ctx context.Context, s Saver, maxPages int) (int, error) {
	if maxPages <= 0 {
		maxPages = 50
	}

	saved := 0
	for page := 1; page <= maxPages; page++ {
		entries, hasNext, err := c.FetchPage(ctx, page)
		if err != nil {
			// A page-level failure ends the walk but keeps what we have.
			log.Printf("[library] stopping at page %d: %v", page, err)
			return saved, err
		}

		for _, e := range entries {
			if err := s.SaveAuthoritativeOrdinance(e.Number, e.Title, c.PDFURL(e.NodeID)); err != nil {
				return saved, fmt.Errorf("saving ordinance %s: %w", e.Number, err)
			}
			saved++
		}

		if !hasNext {
			break
		}
	}

	return saved, nil
}
