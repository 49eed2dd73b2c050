package linker

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

func seedMeeting(t *testing.T, s *store.Store, id string, eventID int, date time.Time, items ...types.AgendaItem) {
	t.Helper()
	require.NoError(t, s.SaveMeeting(&types.Meeting{
		ID: id, EventID: eventID, Date: date,
		Title: "City Council Regular Meeting", Status: types.MeetingStatusFor(date, time.Now()),
		ScrapedAt: time.Now(),
	}))
	require.NoError(t, s.ReplaceAgendaItems(id, items))
}

func ordItem(meetingID string, order int, title, ref string) types.AgendaItem {
	return types.AgendaItem{
		MeetingID: meetingID, OrderNum: order, Title: title,
		Type: types.ItemOrdinance, ReferenceNumber: ref,
	}
}

func TestLinkCreatesProvisionalAndComputesAdoption(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7),
		ordItem("evt-1", 2, "Ordinance 2025-01 First Reading", "2025-01"))
	seedMeeting(t, s, "evt-2", 2, day(21),
		ordItem("evt-2", 3, "Ordinance 2025-01 Second Reading", "2025-01"))

	l := New(s)
	res, err := l.Link(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsSeen)
	assert.Equal(t, 1, res.OrdsCreated)
	assert.Equal(t, 2, res.LinksCreated)
	assert.Zero(t, res.Failed)

	ord, err := s.GetOrdinanceByNumber("2025-01")
	require.NoError(t, err)
	require.NotNil(t, ord)
	assert.True(t, ord.Provisional)
	assert.Equal(t, "Ordinance 2025-01", ord.Title, "reading chatter stays out of the provisional title")
	// Second reading with no explicit terminal action is adoption.
	assert.Equal(t, types.OrdAdopted, ord.Status)
	require.NotNil(t, ord.AdoptedDate)
	assert.True(t, ord.AdoptedDate.Equal(day(21)))
}

func TestLinkIsIdempotent(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7),
		ordItem("evt-1", 2, "Ordinance 2025-01 First Reading", "2025-01"))
	seedMeeting(t, s, "evt-2", 2, day(21),
		ordItem("evt-2", 3, "Ordinance 2025-01 Second Reading", "2025-01"))

	l := New(s)
	first, err := l.Link(context.Background())
	require.NoError(t, err)

	second, err := l.Link(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.ItemsSeen, second.ItemsSeen)
	assert.Zero(t, second.LinksCreated, "re-linking must not create duplicate rows")
	assert.Zero(t, second.OrdsCreated)
	assert.Zero(t, second.StatusUpdated, "status already converged")

	ord, err := s.GetOrdinanceByNumber("2025-01")
	require.NoError(t, err)
	n, err := s.CountOrdinanceLinks(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLinkTerminalStateStable(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7),
		ordItem("evt-1", 1, "Ordinance 2025-02 First Reading", "2025-02"))
	seedMeeting(t, s, "evt-2", 2, day(14),
		ordItem("evt-2", 1, "Motion to table Ordinance 2025-02", "2025-02"))

	l := New(s)
	for i := 0; i < 3; i++ {
		_, err := l.Link(context.Background())
		require.NoError(t, err)

		ord, err := s.GetOrdinanceByNumber("2025-02")
		require.NoError(t, err)
		assert.Equal(t, types.OrdTabled, ord.Status)
		assert.Nil(t, ord.AdoptedDate)
	}
}

func TestLinkOutOfOrderBackfillConverges(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	// The later meeting is scraped and linked first.
	seedMeeting(t, s, "evt-2", 2, day(21),
		ordItem("evt-2", 3, "Ordinance 2025-01 Second Reading", "2025-01"))

	l := New(s)
	_, err = l.Link(context.Background())
	require.NoError(t, err)

	// Backfill discovers the earlier meeting afterwards.
	seedMeeting(t, s, "evt-1", 1, day(7),
		ordItem("evt-1", 2, "Ordinance 2025-01 First Reading", "2025-01"))

	_, err = l.Link(context.Background())
	require.NoError(t, err)

	ord, err := s.GetOrdinanceByNumber("2025-01")
	require.NoError(t, err)
	assert.Equal(t, types.OrdAdopted, ord.Status)
	require.NotNil(t, ord.AdoptedDate)
	assert.True(t, ord.AdoptedDate.Equal(day(21)))
}

func TestLinkAuthoritativeTitleSurvivesRelink(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7),
		ordItem("evt-1", 2, "Ordinance 2025-01 First Reading", "2025-01"))

	l := New(s)
	_, err = l.Link(context.Background())
	require.NoError(t, err)

	// Library sync corrects the provisional title.
	require.NoError(t, s.SaveAuthoritativeOrdinance("2025-01",
		"An Ordinance Establishing Parkland Dedication Requirements",
		"https://library.example.gov/files/5001.pdf"))

	// A later batch pass must not clobber the authoritative row.
	_, err = l.Link(context.Background())
	require.NoError(t, err)

	ord, err := s.GetOrdinanceByNumber("2025-01")
	require.NoError(t, err)
	assert.False(t, ord.Provisional)
	assert.Equal(t, "An Ordinance Establishing Parkland Dedication Requirements", ord.Title)
}

func TestLinkDerivesDiscussedWhenNoKeyword(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	seedMeeting(t, s, "evt-1", 1, day(7),
		ordItem("evt-1", 2, "Ordinance 2025-03 work session overview", "2025-03"))

	l := New(s)
	_, err = l.Link(context.Background())
	require.NoError(t, err)

	ord, err := s.GetOrdinanceByNumber("2025-03")
	require.NoError(t, err)

	links, err := s.OrdinanceLinks(ord.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, types.ActDiscussed, links[0].Action)
	assert.Equal(t, types.OrdIntroduced, ord.Status)
}
