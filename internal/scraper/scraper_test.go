package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDFromHref(t *testing.T) {
	tests := []struct {
		href string
		want int
		ok   bool
	}{
		{"/event/1432", 1432, true},
		{"/event/1432/files", 1432, true},
		{"https://portal.example.gov/event/97?tab=agenda", 97, true},
		{"/event/abc", 0, false},
		{"/events", 0, false},
		{"/event/-3", 0, false},
	}

	for _, tt := range tests {
		got, ok := eventIDFromHref(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}
}

func TestParseEventDate(t *testing.T) {
	// Machine-readable attribute wins.
	got, err := parseEventDate(rawEvent{
		DateAttr: "2025-02-04T19:00:00Z",
		DateText: "Tuesday, February 4, 2025 7:00 PM",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 4, 19, 0, 0, 0, time.UTC), got)

	// Visible text fallback, weekday stripped.
	got, err = parseEventDate(rawEvent{DateText: "Tuesday, February 4, 2025 7:00 PM"})
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 4, got.Day())

	// Numeric era format.
	got, err = parseEventDate(rawEvent{DateText: "02/04/2025 19:00"})
	require.NoError(t, err)
	assert.Equal(t, time.February, got.Month())

	_, err = parseEventDate(rawEvent{})
	assert.Error(t, err)
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://portal.example.gov"
	assert.Equal(t, "https://portal.example.gov/files/1.pdf", absoluteURL(base, "/files/1.pdf"))
	assert.Equal(t, "https://portal.example.gov/files/1.pdf", absoluteURL(base, "files/1.pdf"))
	assert.Equal(t, "https://cdn.example.gov/1.pdf", absoluteURL(base, "https://cdn.example.gov/1.pdf"))
	assert.Equal(t, "", absoluteURL(base, ""))
}

func TestMeetingType(t *testing.T) {
	assert.Equal(t, "City Council", meetingType(rawEvent{Type: "City Council"}))
	assert.Equal(t, "Planning Commission", meetingType(rawEvent{Title: "Planning Commission Work Session"}))
	assert.Equal(t, "City Council", meetingType(rawEvent{Title: "Special Council Meeting"}))
	assert.Equal(t, "", meetingType(rawEvent{Title: "Board of Review"}))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "portal.example.gov", hostOf("https://portal.example.gov"))
	assert.Equal(t, "portal.example.gov", hostOf("https://portal.example.gov/events"))
	assert.Equal(t, "127.0.0.1:8080", hostOf("http://127.0.0.1:8080/events"))
}

func TestParseErrorCarriesEventID(t *testing.T) {
	err := &ParseError{EventID: 217, Reason: "event page rendered without a title"}
	assert.Contains(t, err.Error(), "217")
}
