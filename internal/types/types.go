package types

import "time"

// MeetingStatus is derived from the meeting date relative to now at write
// time, never treated as ground truth from the source.
type MeetingStatus string

const (
	MeetingUpcoming MeetingStatus = "upcoming"
	MeetingPast     MeetingStatus = "past"
)

// MeetingStatusFor derives a meeting's status from its date.
func MeetingStatusFor(date, now time.Time) MeetingStatus {
	if date.Before(now) {
		return MeetingPast
	}
	return MeetingUpcoming
}

// ItemType is the heuristic classification of an agenda line.
type ItemType string

const (
	ItemOrdinance     ItemType = "ordinance"
	ItemResolution    ItemType = "resolution"
	ItemPublicHearing ItemType = "public_hearing"
	ItemOther         ItemType = "other"
)

// OrdinanceStatus tracks an ordinance through the legislative lifecycle.
type OrdinanceStatus string

const (
	OrdIntroduced    OrdinanceStatus = "introduced"
	OrdFirstReading  OrdinanceStatus = "first_reading"
	OrdSecondReading OrdinanceStatus = "second_reading"
	OrdAdopted       OrdinanceStatus = "adopted"
	OrdTabled        OrdinanceStatus = "tabled"
	OrdDenied        OrdinanceStatus = "denied"
)

// ResolutionStatus tracks a resolution's disposition.
type ResolutionStatus string

const (
	ResProposed       ResolutionStatus = "proposed"
	ResAdopted        ResolutionStatus = "adopted"
	ResTabled         ResolutionStatus = "tabled"
	ResRejected       ResolutionStatus = "rejected"
	ResPendingMinutes ResolutionStatus = "pending_minutes"
)

// Action is a recorded legislative action for an item at a specific meeting.
type Action string

const (
	ActIntroduced    Action = "introduced"
	ActFirstReading  Action = "first_reading"
	ActSecondReading Action = "second_reading"
	ActAdopted       Action = "adopted"
	ActTabled        Action = "tabled"
	ActDenied        Action = "denied"
	ActAmended       Action = "amended"
	ActDiscussed     Action = "discussed"
)

// Meeting represents a scraped portal event.
type Meeting struct {
	ID         string        `json:"id"` // "evt-<external id>"
	EventID    int           `json:"event_id"`
	Date       time.Time     `json:"date"`
	Title      string        `json:"title"`
	Type       string        `json:"type"` // e.g. "City Council", "Planning Commission"
	Location   string        `json:"location"`
	Status     MeetingStatus `json:"status"`
	AgendaURL  string        `json:"agenda_url"`
	PacketURL  string        `json:"packet_url"`
	MinutesURL string        `json:"minutes_url"`
	Details    string        `json:"details"`
	Summary    string        `json:"summary"`
	ScrapedAt  time.Time     `json:"scraped_at"`
}

// AgendaItem is one line of a meeting's agenda, owned by its meeting and
// keyed by (meeting id, order number). OrderNum preserves the official
// agenda sequence exactly as presented by the source.
type AgendaItem struct {
	MeetingID       string   `json:"meeting_id"`
	OrderNum        int      `json:"order_num"`
	Title           string   `json:"title"`
	Type            ItemType `json:"type"`
	ReferenceNumber string   `json:"reference_number,omitempty"`
	Outcome         string   `json:"outcome,omitempty"`
}

// Ordinance is keyed by its number, the stable business key. Provisional
// rows are created from agenda references before the ordinance library
// confirms them.
type Ordinance struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	Title       string          `json:"title"`
	Status      OrdinanceStatus `json:"status"`
	AdoptedDate *time.Time      `json:"adopted_date,omitempty"`
	SourceURL   string          `json:"source_url,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Provisional bool            `json:"provisional"`
}

// OrdinanceMeetingLink records one distinct action observed for an
// ordinance at a meeting. Append-only per (ordinance, meeting, action).
type OrdinanceMeetingLink struct {
	OrdinanceID int64  `json:"ordinance_id"`
	MeetingID   string `json:"meeting_id"`
	Action      Action `json:"action"`
}

// Resolution is keyed by its number. MeetingID is the most recent meeting
// where it was discussed; IntroducedDate is the earliest mention.
type Resolution struct {
	ID             int64            `json:"id"`
	Number         string           `json:"number"`
	Title          string           `json:"title"`
	Status         ResolutionStatus `json:"status"`
	IntroducedDate *time.Time       `json:"introduced_date,omitempty"`
	AdoptedDate    *time.Time       `json:"adopted_date,omitempty"`
	MeetingID      string           `json:"meeting_id,omitempty"`
	Summary        string           `json:"summary,omitempty"`
}

// Document is a resolved monthly report (permits, businesses, budget,
// audit). URL is whichever candidate convention worked, remembered for
// future direct access. DateSource records which rule of the date
// inference cascade produced DocDate.
type Document struct {
	ID         int64      `json:"id"`
	Kind       string     `json:"kind"`
	Period     string     `json:"period"` // "2025-03"
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	DocDate    *time.Time `json:"doc_date,omitempty"`
	DateSource string     `json:"date_source"` // "filename", "summary", or "year_only"
	Summary    string     `json:"summary,omitempty"`
	FetchedAt  time.Time  `json:"fetched_at"`
}
