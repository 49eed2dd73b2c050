package resolutions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgodwin/civtrace/internal/store"
	"github.com/kgodwin/civtrace/internal/types"
)

func day(n int) time.Time {
	return time.Date(2025, 1, n, 19, 0, 0, 0, time.UTC)
}

func seedMeeting(t *testing.T, s *store.Store, id string, eventID int, date time.Time, minutesURL string, items ...types.AgendaItem) {
	t.Helper()
	require.NoError(t, s.SaveMeeting(&types.Meeting{
		ID: id, EventID: eventID, Date: date,
		Title: "City Council Regular Meeting", Status: types.MeetingStatusFor(date, time.Now()),
		MinutesURL: minutesURL, ScrapedAt: time.Now(),
	}))
	require.NoError(t, s.ReplaceAgendaItems(id, items))
}

func resItem(meetingID string, order int, title, ref string) types.AgendaItem {
	return types.AgendaItem{
		MeetingID: meetingID, OrderNum: order, Title: title,
		Type: types.ItemResolution, ReferenceNumber: ref,
	}
}

func newExtractor(s *store.Store, now time.Time) *Extractor {
	e := New(s)
	e.now = func() time.Time { return now }
	return e
}

func TestExtractDedupsAcrossMeetings(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7), "https://portal.example.gov/m1.pdf",
		resItem("evt-1", 4, "Resolution 25-010 Authorizing Purchase of Plow Truck", "25-010"))
	seedMeeting(t, s, "evt-2", 2, day(21), "https://portal.example.gov/m2.pdf",
		resItem("evt-2", 5, "Resolution 25-010 - ADOPTED 5-0", "25-010"))

	res, err := newExtractor(s, day(28)).Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Zero(t, res.Failed)

	n, err := s.CountResolutions()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one record regardless of mention count")

	r, err := s.GetResolutionByNumber("25-010")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, types.ResAdopted, r.Status)
	assert.Equal(t, "evt-2", r.MeetingID, "latest mention wins for meeting pointer")
	require.NotNil(t, r.IntroducedDate)
	assert.True(t, r.IntroducedDate.Equal(day(7)), "earliest mention sets introduced_date")
	require.NotNil(t, r.AdoptedDate)
	assert.True(t, r.AdoptedDate.Equal(day(21)))
}

func TestExtractConvergesAcrossReruns(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7), "m1.pdf",
		resItem("evt-1", 1, "Resolution 25-011 Street Closure", "25-011"))
	seedMeeting(t, s, "evt-2", 2, day(21), "m2.pdf",
		resItem("evt-2", 1, "Resolution 25-011 tabled", "25-011"))

	e := newExtractor(s, day(28))
	_, err = e.Extract(context.Background(), "")
	require.NoError(t, err)

	first, err := s.GetResolutionByNumber("25-011")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := e.Extract(context.Background(), "")
		require.NoError(t, err)
		assert.Zero(t, res.Created)

		again, err := s.GetResolutionByNumber("25-011")
		require.NoError(t, err)
		assert.Equal(t, first.Status, again.Status)
		assert.Equal(t, first.MeetingID, again.MeetingID)
	}

	n, err := s.CountResolutions()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExtractScopedToMeetingStillUsesFullHistory(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7), "m1.pdf",
		resItem("evt-1", 1, "Resolution 25-012 Fee Schedule", "25-012"))
	seedMeeting(t, s, "evt-2", 2, day(21), "m2.pdf",
		resItem("evt-2", 1, "Resolution 25-012 adopted", "25-012"))

	// Scoped to the earlier meeting, but status must still come from the
	// later mention.
	_, err = newExtractor(s, day(28)).Extract(context.Background(), "evt-1")
	require.NoError(t, err)

	r, err := s.GetResolutionByNumber("25-012")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, types.ResAdopted, r.Status)
	assert.Equal(t, "evt-2", r.MeetingID)
}

func TestExtractPendingMinutes(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	// Past meeting, minutes not yet published, no action keyword.
	seedMeeting(t, s, "evt-1", 1, day(7), "",
		resItem("evt-1", 1, "Resolution 25-013 Sidewalk Assessment", "25-013"))

	_, err = newExtractor(s, day(28)).Extract(context.Background(), "")
	require.NoError(t, err)

	r, err := s.GetResolutionByNumber("25-013")
	require.NoError(t, err)
	assert.Equal(t, types.ResPendingMinutes, r.Status)
}

func TestExtractRejected(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7), "m1.pdf",
		resItem("evt-1", 1, "Resolution 25-014 Rezoning Request - denied", "25-014"))

	_, err = newExtractor(s, day(28)).Extract(context.Background(), "")
	require.NoError(t, err)

	r, err := s.GetResolutionByNumber("25-014")
	require.NoError(t, err)
	assert.Equal(t, types.ResRejected, r.Status)
}

func TestExtractStoresCleanedTitle(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7), "m1.pdf",
		resItem("evt-1", 1, "Resolution 25-015 Water Main Replacement - ADOPTED 5-0", "25-015"))

	_, err = newExtractor(s, day(28)).Extract(context.Background(), "")
	require.NoError(t, err)

	r, err := s.GetResolutionByNumber("25-015")
	require.NoError(t, err)
	assert.Equal(t, "Resolution 25-015 Water Main Replacement", r.Title)
}
