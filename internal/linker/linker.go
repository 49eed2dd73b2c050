// Package linker reconciles agenda items that reference ordinances
// against the ordinance table, recording lifecycle actions per meeting
// and recomputing each ordinance's overall status.
package linker

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

// Result aggregates one linking pass. Partial success is the expected
// steady state; per-item failures are counted, not thrown.
type Result struct {
	ItemsSeen     int
	LinksCreated  int
	OrdsCreated   int
	StatusUpdated int
	Failed        int
}

// Linker runs the ordinance reconciliation pass.
type Linker struct {
	store *store.Store
}

// New creates a linker over the given store.
func New(s *store.Store) *Linker {
	return &Linker{store: s}
}

// Link runs a batch over all currently known ordinance-classified agenda
// items, not just newly scraped ones, so a later authoritative library
// fetch retroactively corrects provisional rows without re-scraping
// meetings. The whole pass is idempotent: links are append-only per
// (ordinance, meeting, action) and status is recomputed from the full
// link set each time.
func (l *Linker) Link(ctx context.Context) (Result, error) {
	var res Result

	items, err := l.store.ItemsByType(types.ItemOrdinance, "")
	if err != nil {
		return res, fmt.Errorf("loading ordinance items: %w", err)
	}
	res.ItemsSeen = len(items)

	touched := make(map[int64]bool)

	for _, iw := range items {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		ordID, created, err := l.lookupOrCreate(iw.Item)
		if err != nil {
			res.Failed++
			log.Printf("[linker] item %s/%d (%s): %v", iw.Item.MeetingID, iw.Item.OrderNum, iw.Item.ReferenceNumber, err)
			continue
		}
		if created {
			res.OrdsCreated++
		}

		action := classify.Action(iw.Item.Title + " " + iw.Item.Outcome)
		inserted, err := l.store.LinkOrdinanceMeeting(ordID, iw.Item.MeetingID, action)
		if err != nil {
			res.Failed++
			log.Printf("[linker] linking %s to %s: %v", iw.Item.ReferenceNumber, iw.Item.MeetingID, err)
			continue
		}
		if inserted {
			res.LinksCreated++
		}
		touched[ordID] = true
	}

	// Second pass: recompute each touched ordinance's status from its
	// full, date-ordered link set.
	for ordID := range touched {
		updated, err := l.recompute(ordID)
		if err != nil {
			res.Failed++
			log.Printf("[linker] recomputing ordinance %d: %v", ordID, err)
			continue
		}
		if updated {
			res.StatusUpdated++
		}
	}

	log.Printf("[linker] %d items: %d links created, %d ordinances created, %d statuses updated, %d failed",
		res.ItemsSeen, res.LinksCreated, res.OrdsCreated, res.StatusUpdated, res.Failed)
	return res, nil
}

// lookupOrCreate finds the ordinance for an item's reference number,
// creating a provisional row when it's the first sighting.
func (l *Linker) lookupOrCreate(item types.AgendaItem) (int64, bool, error) {
	ord, err := l.store.GetOrdinanceByNumber(item.ReferenceNumber)
	if err != nil {
		return 0, false, err
	}
	if ord != nil {
		return ord.ID, false, nil
	}

	id, err := l.store.CreateProvisionalOrdinance(item.ReferenceNumber, classify.CleanTitle(item.Title))
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// recompute derives the ordinance's status from all of its links and
// writes it back only if changed.
func (l *Linker) recompute(ordID int64) (bool, error) {
	links, err := l.store.OrdinanceLinks(ordID)
	if err != nil {
		return false, err
	}

	actions := make([]lifecycle.DatedAction, len(links))
	for i, link := range links {
		actions[i] = lifecycle.DatedAction{
			Action:    link.Action,
			MeetingID: link.MeetingID,
			Date:      link.MeetingDate,
		}
	}

	status, adoptedDate := lifecycle.ComputeStatus(actions)

	cur, err := l.store.GetOrdinanceByID(ordID)
	if err != nil {
		return false, err
	}
	if cur == nil {
		return false, fmt.Errorf("ordinance %d vanished during recompute", ordID)
	}

	if cur.Status == status && equalDates(cur.AdoptedDate, adoptedDate) {
		return false, nil
	}
	if err := l.store.UpdateOrdinanceStatus(ordID, status, adoptedDate); err != nil {
		return false, err
	}
	return true, nil
}

func equalDates(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
