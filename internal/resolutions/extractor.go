// Package resolutions materializes Resolution records from agenda items
// across all meetings, inferring status from the most recent relevant
// meeting.
package resolutions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kgodwin/civtrace/internal/classify"
	"github.com/kgodwin/civtrace/internal/lifecycle"
	"github.com/kgodwin/civtrace/internal/store"
	"github.com/kgodwin/civtrace/internal/types"
)

// Result aggregates one extraction pass.
type Result struct {
	Created int
	Updated int
	Failed  int
}

// Extractor scans agenda items for resolution mentions.
type Extractor struct {
	store *store.Store
	now   func() time.Time
}

// New creates an extractor over the given store.
func New(s *store.Store) *Extractor {
	return &Extractor{store: s, now: time.Now}
}

// Extract materializes resolutions from agenda items, optionally scoped
// to one meeting's numbers. Status always recomputes from the FULL
// mention set for each number, never accumulates incrementally, so the
// result converges regardless of run count or scrape order. The meeting
// scope only selects which numbers to revisit.
func (e *Extractor) Extract(ctx context.Context, meetingID string) (Result, error) {
	var res Result

	// Which numbers are in scope?
	scoped, err := e.store.ItemsByType(types.ItemResolution, meetingID)
	if err != nil {
		return res, fmt.Errorf("loading resolution items: %w", err)
	}
	numbers := make(map[string]bool)
	for _, iw := range scoped {
		numbers[iw.Item.ReferenceNumber] = true
	}
	if len(numbers) == 0 {
		return res, nil
	}

	// Full mention set, grouped by number.
	all, err := e.store.ItemsByType(types.ItemResolution, "")
	if err != nil {
		return res, fmt.Errorf("loading resolution mentions: %w", err)
	}
	byNumber := make(map[string][]store.ItemWithMeeting)
	for _, iw := range all {
		byNumber[iw.Item.ReferenceNumber] = append(byNumber[iw.Item.ReferenceNumber], iw)
	}

	now := e.now()
	for number := range numbers {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		created, err := e.materialize(number, byNumber[number], now)
		if err != nil {
			res.Failed++
			log.Printf("[resolutions] %s: %v", number, err)
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	log.Printf("[resolutions] %d created, %d updated, %d failed", res.Created, res.Updated, res.Failed)
	return res, nil
}

// materialize recomputes one resolution from all of its mentions and
// upserts it by number.
func (e *Extractor) materialize(number string, items []store.ItemWithMeeting, now time.Time) (bool, error) {
	if len(items) == 0 {
		return false, fmt.Errorf("no mentions for %s", number)
	}

	mentions := make([]lifecycle.Mention, len(items))
	for i, iw := range items {
		text := iw.Item.Title + " " + iw.Item.Outcome
		mentions[i] = lifecycle.Mention{
			MeetingID:  iw.Item.MeetingID,
			Date:       iw.MeetingDate,
			Text:       text,
			Action:     classify.Action(text),
			HasMinutes: iw.MinutesURL != "",
		}
	}

	status, introduced, latestMeeting, adopted := lifecycle.ResolutionOutcome(mentions, now)

	existing, err := e.store.GetResolutionByNumber(number)
	if err != nil {
		return false, err
	}

	r := &types.Resolution{
		Number:         number,
		Title:          classify.CleanTitle(items[0].Item.Title),
		Status:         status,
		IntroducedDate: introduced,
		AdoptedDate:    adopted,
		MeetingID:      latestMeeting,
	}
	if err := e.store.SaveResolution(r); err != nil {
		return false, err
	}
	return existing == nil, nil
}
