// Package scraper extracts meetings and agenda items from the city's
// meeting portal. The portal is a JS-rendered single-page app with no
// documented API, so every fetch runs through a headless browser session.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/kgodwin/civtrace/internal/browser"
	"github.com/kgodwin/civtrace/internal/classify"
	"github.com/kgodwin/civtrace/internal/ratelimit"
	"github.com/kgodwin/civtrace/internal/types"
)

// ParseError reports that one event's page did not have the expected
// shape. It carries the event id so the failure can be reproduced; one
// bad event never aborts the batch.
type ParseError struct {
	EventID int
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %d: %s: %v", e.EventID, e.Reason, e.Err)
	}
	return fmt.Sprintf("event %d: %s", e.EventID, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Scraper handles extracting meetings from the portal.
type Scraper struct {
	baseURL     string
	headless    bool
	limiter     *ratelimit.Limiter
	pageTimeout time.Duration
}

// New creates a new scraper for the portal at baseURL.
func New(baseURL string, headless bool, limiter *ratelimit.Limiter, pageTimeout time.Duration) *Scraper {
	if pageTimeout <= 0 {
		pageTimeout = 60 * time.Second
	}
	return &Scraper{
		baseURL:     strings.TrimRight(baseURL, "/"),
		headless:    headless,
		limiter:     limiter,
		pageTimeout: pageTimeout,
	}
}

// newBrowserCtx creates a browser context with the shared stealth options
// and the per-page timeout applied.
func (s *Scraper) newBrowserCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browser.Options(s.headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	timeoutCtx, timeoutCancel := context.WithTimeout(browserCtx, s.pageTimeout)

	return timeoutCtx, func() {
		timeoutCancel()
		browserCancel()
		allocCancel()
	}
}

// prepare sets request headers a real browser would send; the portal's
// bot checks look for their absence.
func prepare() chromedp.Tasks {
	return chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}
}

// ListEvents fetches the portal's event list and returns the external
// event ids it links to.
func (s *Scraper) ListEvents(ctx context.Context) ([]int, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	browserCtx, cancel := s.newBrowserCtx(ctx)
	defer cancel()

	var hrefs []string
	err := chromedp.Run(browserCtx,
		prepare(),
		chromedp.Navigate(s.baseURL+"/events"),
		chromedp.WaitVisible(WaitForEventList, chromedp.ByQuery),
		chromedp.Evaluate(`
			Array.from(document.querySelectorAll('`+EventCard+`'))
				.map(a => a.getAttribute('href'))
		`, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load event list: %w", err)
	}

	seen := make(map[int]bool)
	var ids []int
	for _, href := range hrefs {
		id, ok := eventIDFromHref(href)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}

// eventIDFromHref extracts the numeric event id from an event link like
// "/event/1432" or "https://portal.example.gov/event/1432/files".
func eventIDFromHref(href string) (int, bool) {
	idx := strings.Index(href, "/event/")
	if idx < 0 {
		return 0, false
	}
	rest := href[idx+len("/event/"):]
	if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
		rest = rest[:cut]
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// rawEvent is the event data extracted from the DOM via JavaScript.
type rawEvent struct {
	Title    string    `json:"title"`
	DateText string    `json:"dateText"`
	DateAttr string    `json:"dateAttr"`
	Type     string    `json:"type"`
	Location string    `json:"location"`
	Details  string    `json:"details"`
	Items    []rawItem `json:"items"`
}

type rawItem struct {
	Title   string `json:"title"`
	Outcome string `json:"outcome"`
}

// rawFile is a document link from the files view.
type rawFile struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

// FetchDetails renders one event page and returns the normalized meeting
// plus its agenda items in official order.
func (s *Scraper) FetchDetails(ctx context.Context, eventID int) (*types.Meeting, []types.AgendaItem, error) {
	if err := s.wait(ctx); err != nil {
		return nil, nil, err
	}

	browserCtx, cancel := s.newBrowserCtx(ctx)
	defer cancel()

	eventURL := fmt.Sprintf("%s/event/%d", s.baseURL, eventID)

	var raw rawEvent
	err := chromedp.Run(browserCtx,
		prepare(),
		chromedp.Navigate(eventURL),
		chromedp.WaitVisible(WaitForEvent, chromedp.ByQuery),
		chromedp.Evaluate(extractEventJS, &raw),
	)
	if err != nil {
		return nil, nil, &ParseError{EventID: eventID, Reason: "failed to render event page", Err: err}
	}

	if raw.Title == "" {
		return nil, nil, &ParseError{EventID: eventID, Reason: "event page rendered without a title"}
	}

	date, err := parseEventDate(raw)
	if err != nil {
		return nil, nil, &ParseError{EventID: eventID, Reason: "unparseable event date", Err: err}
	}

	// The files viewer only exposes document URLs after the tab is
	// clicked; a portal quirk, not optional.
	files, err := s.fetchFiles(browserCtx)
	if err != nil {
		// Missing files view is common for upcoming meetings; carry on
		// with an empty set rather than failing the event.
		files = nil
	}

	now := time.Now()
	meeting := &types.Meeting{
		ID:        fmt.Sprintf("evt-%d", eventID),
		EventID:   eventID,
		Date:      date,
		Title:     strings.TrimSpace(raw.Title),
		Type:      meetingType(raw),
		Location:  strings.TrimSpace(raw.Location),
		Status:    types.MeetingStatusFor(date, now),
		Details:   strings.TrimSpace(raw.Details),
		ScrapedAt: now,
	}

	for _, f := range files {
		name := strings.ToLower(f.Name)
		switch {
		case strings.Contains(name, "minutes"):
			meeting.MinutesURL = absoluteURL(s.baseURL, f.Href)
		case strings.Contains(name, "packet"):
			meeting.PacketURL = absoluteURL(s.baseURL, f.Href)
		case strings.Contains(name, "agenda"):
			meeting.AgendaURL = absoluteURL(s.baseURL, f.Href)
		}
	}

	items := make([]types.AgendaItem, 0, len(raw.Items))
	for i, ri := range raw.Items {
		title := strings.TrimSpace(ri.Title)
		if title == "" {
			continue
		}
		itemType, ref := classify.Classify(title)
		items = append(items, types.AgendaItem{
			MeetingID:       meeting.ID,
			OrderNum:        i + 1,
			Title:           title,
			Type:            itemType,
			ReferenceNumber: ref,
			Outcome:         strings.TrimSpace(ri.Outcome),
		})
	}

	return meeting, items, nil
}

// fetchFiles clicks the files tab and extracts the document links that
// populate the viewer.
func (s *Scraper) fetchFiles(ctx context.Context) ([]rawFile, error) {
	var files []rawFile
	err := chromedp.Run(ctx,
		chromedp.Click(FilesTab, chromedp.ByQuery),
		chromedp.WaitVisible(FileLinks, chromedp.ByQuery),
		chromedp.Evaluate(`
			Array.from(document.querySelectorAll('`+FileLinks+`'))
				.map(a => ({name: (a.textContent || '').trim(), href: a.getAttribute('href') || ''}))
		`, &files),
	)
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Scraper) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx, hostOf(s.baseURL))
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	return u.Host
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}

// parseEventDate prefers the machine-readable datetime attribute and
// falls back to the visible text, which has gone through several formats
// ("Tuesday, February 4, 2025 7:00 PM", "02/04/2025 19:00").
func parseEventDate(raw rawEvent) (time.Time, error) {
	if raw.DateAttr != "" {
		if t, err := time.Parse(time.RFC3339, raw.DateAttr); err == nil {
			return t, nil
		}
	}
	text := strings.TrimSpace(raw.DateText)
	if text == "" {
		return time.Time{}, fmt.Errorf("no date on page")
	}
	// Strip a leading weekday; dateparse chokes on "Tuesday, ..." forms.
	if i := strings.Index(text, ", "); i > 0 && isWeekday(text[:i]) {
		text = text[i+2:]
	}
	return dateparse.ParseAny(text)
}

func isWeekday(s string) bool {
	switch strings.ToLower(s) {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}

// meetingType prefers the portal's explicit type chip and falls back to
// sniffing the title.
func meetingType(raw rawEvent) string {
	if t := strings.TrimSpace(raw.Type); t != "" {
		return t
	}
	title := strings.ToLower(raw.Title)
	switch {
	case strings.Contains(title, "planning"):
		return "Planning Commission"
	case strings.Contains(title, "council"):
		return "City Council"
	default:
		return ""
	}
}

// extractEventJS pulls the event header and agenda rows out of the DOM.
const extractEventJS = `
	(function() {
		const text = (sel) => {
			const el = document.querySelector(sel);
			return el ? el.textContent.trim() : '';
		};

		const timeEl = document.querySelector('` + EventDate + `');

		const items = [];
		document.querySelectorAll('` + AgendaRow + `').forEach(row => {
			try {
				const titleEl = row.querySelector('[data-field="title"]') || row;
				const outcomeEl = row.querySelector('[data-field="outcome"]');
				items.push({
					title: (titleEl.textContent || '').trim(),
					outcome: outcomeEl ? outcomeEl.textContent.trim() : ''
				});
			} catch (e) {
				console.error('Error extracting agenda row:', e);
			}
		});

		return {
			title: text('` + EventTitle + `'),
			dateText: timeEl ? timeEl.textContent.trim() : '',
			dateAttr: timeEl ? (timeEl.getAttribute('datetime') || '') : '',
			type: text('[data-component="event-type"]'),
			location: text('` + EventLocation + `'),
			details: text('[data-component="event-details"]'),
			items: items
		};
	})()
`
