package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgodwin/civtrace/internal/config"
	"github.com/kgodwin/civtrace/internal/scraper"
	"github.com/kgodwin/civtrace/internal/store"
	"github.com/kgodwin/civtrace/internal/types"
)

// fakeFetcher serves canned meetings and fails specific event ids.
type fakeFetcher struct {
	ids     []int
	failing map[int]bool
}

func (f *fakeFetcher) ListEvents(ctx context.Context) ([]int, error) {
	return f.ids, nil
}

func (f *fakeFetcher) Discover(ctx context.Context, start, end, maxProbes int) ([]int, error) {
	return f.ids, nil
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, eventID int) (*types.Meeting, []types.AgendaItem, error) {
	if f.failing[eventID] {
		return nil, nil, &scraper.ParseError{EventID: eventID, Reason: "event page rendered without a title"}
	}
	id := fmt.Sprintf("evt-%d", eventID)
	date := time.Date(2025, 3, eventID, 19, 0, 0, 0, time.UTC)
	return &types.Meeting{
			ID: id, EventID: eventID, Date: date,
			Title: "City Council Regular Meeting", Status: types.MeetingStatusFor(date, time.Now()),
			ScrapedAt: time.Now(),
		}, []types.AgendaItem{
			{MeetingID: id, OrderNum: 1, Title: fmt.Sprintf("Ordinance 2025-%02d First Reading", eventID),
				Type: types.ItemOrdinance, ReferenceNumber: fmt.Sprintf("2025-%02d", eventID)},
		}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Portal.BaseURL = "https://portal.example.gov"
	cfg.Scraping.Workers = 2
	return cfg
}

func TestRunScrapeIsolatesEventFailures(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	fake := &fakeFetcher{ids: []int{1, 2, 3}, failing: map[int]bool{2: true}}
	a := New(testConfig(), s, WithFetcher(fake))

	res, err := a.RunScrape(context.Background())
	require.NoError(t, err, "one bad event must not fail the batch")
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].EventID)
	assert.NotEmpty(t, res.RunID)

	// The healthy events landed.
	m, err := s.GetMeeting("evt-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	m, err = s.GetMeeting("evt-2")
	require.NoError(t, err)
	assert.Nil(t, m)
	m, err = s.GetMeeting("evt-3")
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestRunScrapeIsIdempotent(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	fake := &fakeFetcher{ids: []int{1, 2}}
	a := New(testConfig(), s, WithFetcher(fake))

	for i := 0; i < 3; i++ {
		res, err := a.RunScrape(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Succeeded)
	}

	meetings, err := s.ListMeetings()
	require.NoError(t, err)
	assert.Len(t, meetings, 2)

	items, err := s.AgendaItems("evt-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "agenda must not accumulate across reruns")
}

func TestRunScrapeEmptyListing(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()

	a := New(testConfig(), s, WithFetcher(&fakeFetcher{}))
	res, err := a.RunScrape(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed)
}
