// Package lifecycle encodes the legislative-domain policies the rest of
// the pipeline must not reinterpret: the ordinance reading state machine,
// the implied-adoption rule, and the latest-mention-wins rule for
// resolutions. Derived status is always recomputed from the full set of
// recorded actions ordered by meeting date, never mutated incrementally,
// so out-of-order backfills converge.
package lifecycle

import (
	"sort"
	"time"

	"github.com/kgodwin/civtrace/internal/types"
)

// DatedAction is a lifecycle action observed at a dated meeting.
type DatedAction struct {
	Action    types.Action
	MeetingID string
	Date      time.Time
}

// Mention is a resolution reference observed at a dated meeting.
type Mention struct {
	MeetingID  string
	Date       time.Time
	Text       string // item title plus recorded outcome
	Action     types.Action
	HasMinutes bool
}

// Advance applies one action to the ordinance state machine. Terminal
// states (adopted, tabled, denied) absorb everything; amendments and
// discussion never move the state.
func Advance(cur types.OrdinanceStatus, act types.Action) types.OrdinanceStatus {
	switch cur {
	case types.OrdAdopted, types.OrdTabled, types.OrdDenied:
		return cur
	}

	switch act {
	case types.ActFirstReading:
		if cur == types.OrdIntroduced {
			return types.OrdFirstReading
		}
	case types.ActSecondReading:
		if cur == types.OrdIntroduced || cur == types.OrdFirstReading {
			return types.OrdSecondReading
		}
	case types.ActAdopted:
		return types.OrdAdopted
	case types.ActTabled:
		return types.OrdTabled
	case types.ActDenied:
		return types.OrdDenied
	}
	return cur
}

// AdoptionBySecondReading implements the implied-adoption policy: in this
// legislative process the second-reading vote is the adoption vote, so a
// recorded second_reading with no explicit adopted/tabled/denied action is
// treated as adoption. This is documented municipal procedure, not a
// guess. Returns the adoption date (the second reading's meeting date).
func AdoptionBySecondReading(actions []DatedAction) (time.Time, bool) {
	var second time.Time
	var found bool
	for _, a := range actions {
		switch a.Action {
		case types.ActAdopted, types.ActTabled, types.ActDenied:
			return time.Time{}, false
		case types.ActSecondReading:
			second = a.Date
			found = true
		}
	}
	return second, found
}

// ComputeStatus folds the full action history for an ordinance, ordered by
// meeting date, through the state machine and applies the implied-adoption
// policy. Returns the derived status and the adoption date when adopted.
func ComputeStatus(actions []DatedAction) (types.OrdinanceStatus, *time.Time) {
	sorted := make([]DatedAction, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	status := types.OrdIntroduced
	var adopted *time.Time
	for _, a := range sorted {
		next := Advance(status, a.Action)
		if next == types.OrdAdopted && status != types.OrdAdopted {
			d := a.Date
			adopted = &d
		}
		status = next
	}

	if d, ok := AdoptionBySecondReading(sorted); ok {
		return types.OrdAdopted, &d
	}
	return status, adopted
}

// ResolutionOutcome applies the latest-mention-wins policy: a resolution's
// status comes from the action text of the most recent meeting at which
// its number appeared. Returns the status, the earliest mention date
// (introduced), the latest mention's meeting id, and the adoption date
// when adopted.
func ResolutionOutcome(mentions []Mention, now time.Time) (types.ResolutionStatus, *time.Time, string, *time.Time) {
	if len(mentions) == 0 {
		return types.ResProposed, nil, "", nil
	}

	sorted := make([]Mention, len(mentions))
	copy(sorted, mentions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	first := sorted[0]
	last := sorted[len(sorted)-1]
	introduced := first.Date

	var status types.ResolutionStatus
	var adoptedDate *time.Time
	switch last.Action {
	case types.ActAdopted:
		status = types.ResAdopted
		d := last.Date
		adoptedDate = &d
	case types.ActTabled:
		status = types.ResTabled
	case types.ActDenied:
		status = types.ResRejected
	default:
		// No action keyword. If the deciding meeting already happened but
		// its minutes aren't published yet, the vote likely occurred and
		// the record simply hasn't landed.
		if last.Date.Before(now) && !last.HasMinutes {
			status = types.ResPendingMinutes
		} else {
			status = types.ResProposed
		}
	}

	return status, &introduced, last.MeetingID, adoptedDate
}
