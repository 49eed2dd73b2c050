package scraper

// Portal DOM selectors
// These are isolated here because the portal vendor restyles frequently
// Update these when scraping breaks

const (
	// Event list page
	EventList = `[data-component="event-list"]`
	EventCard = `a[href*="/event/"]`

	// Event detail page
	EventHeader   = `[data-component="event-header"]`
	EventTitle    = `[data-component="event-header"] h1`
	EventDate     = `[data-component="event-header"] time`
	EventLocation = `[data-component="event-location"]`
	AgendaRow     = `[data-component="agenda-item"]`

	// Files view; document links only populate the viewer after the tab
	// is clicked
	FilesTab  = `[data-tab="files"]`
	FileLinks = `[data-component="file-viewer"] a[href]`

	// Not-found shell, used by the ID discoverer to classify probes
	NotFoundShell = `[data-component="event-not-found"]`
)

// Common wait conditions
const (
	WaitForEventList = EventList
	WaitForEvent     = EventHeader
)
