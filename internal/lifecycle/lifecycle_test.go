package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgodwin/civtrace/internal/types"
)

func day(n int) time.Time {
	return time.Date(2025, 1, n, 19, 0, 0, 0, time.UTC)
}

func TestComputeStatusImpliedAdoption(t *testing.T) {
	// Two readings and no explicit terminal action: the second-reading
	// vote is the adoption vote.
	actions := []DatedAction{
		{Action: types.ActFirstReading, MeetingID: "evt-1", Date: day(7)},
		{Action: types.ActSecondReading, MeetingID: "evt-2", Date: day(21)},
	}

	status, adopted := ComputeStatus(actions)
	assert.Equal(t, types.OrdAdopted, status)
	require.NotNil(t, adopted)
	assert.Equal(t, day(21), *adopted)
}

func TestComputeStatusExplicitTerminalBeatsImplied(t *testing.T) {
	actions := []DatedAction{
		{Action: types.ActFirstReading, Date: day(7)},
		{Action: types.ActSecondReading, Date: day(21)},
		{Action: types.ActTabled, Date: day(28)},
	}

	status, adopted := ComputeStatus(actions)
	assert.Equal(t, types.OrdTabled, status)
	assert.Nil(t, adopted)
}

func TestComputeStatusOutOfOrderDiscovery(t *testing.T) {
	// A backfill can hand us actions in any order; the fold sorts by
	// meeting date first.
	actions := []DatedAction{
		{Action: types.ActSecondReading, Date: day(21)},
		{Action: types.ActFirstReading, Date: day(7)},
		{Action: types.ActIntroduced, Date: day(1)},
	}

	status, adopted := ComputeStatus(actions)
	assert.Equal(t, types.OrdAdopted, status)
	require.NotNil(t, adopted)
	assert.Equal(t, day(21), *adopted)
}

func TestComputeStatusTerminalIsStable(t *testing.T) {
	actions := []DatedAction{
		{Action: types.ActFirstReading, Date: day(7)},
		{Action: types.ActTabled, Date: day(14)},
		// Later chatter must not resurrect the ordinance.
		{Action: types.ActDiscussed, Date: day(28)},
	}

	for i := 0; i < 3; i++ {
		status, adopted := ComputeStatus(actions)
		assert.Equal(t, types.OrdTabled, status)
		assert.Nil(t, adopted)
	}
}

func TestComputeStatusSingleReading(t *testing.T) {
	status, adopted := ComputeStatus([]DatedAction{
		{Action: types.ActFirstReading, Date: day(7)},
	})
	assert.Equal(t, types.OrdFirstReading, status)
	assert.Nil(t, adopted)
}

func TestComputeStatusDiscussionOnly(t *testing.T) {
	status, _ := ComputeStatus([]DatedAction{
		{Action: types.ActDiscussed, Date: day(7)},
		{Action: types.ActAmended, Date: day(14)},
	})
	assert.Equal(t, types.OrdIntroduced, status)
}

func TestComputeStatusExplicitAdoptionDate(t *testing.T) {
	actions := []DatedAction{
		{Action: types.ActFirstReading, Date: day(7)},
		{Action: types.ActAdopted, Date: day(14)},
	}
	status, adopted := ComputeStatus(actions)
	assert.Equal(t, types.OrdAdopted, status)
	require.NotNil(t, adopted)
	assert.Equal(t, day(14), *adopted)
}

func TestAdvanceSkipsBackwardTransitions(t *testing.T) {
	// A stray first_reading after second_reading must not regress.
	assert.Equal(t, types.OrdSecondReading, Advance(types.OrdSecondReading, types.ActFirstReading))
	assert.Equal(t, types.OrdAdopted, Advance(types.OrdAdopted, types.ActFirstReading))
}

func TestResolutionOutcomeLatestMentionWins(t *testing.T) {
	now := day(28)
	mentions := []Mention{
		{MeetingID: "evt-2", Date: day(14), Text: "Resolution 25-010 - adopted 5-0", Action: types.ActAdopted, HasMinutes: true},
		{MeetingID: "evt-1", Date: day(7), Text: "Resolution 25-010 introduced", Action: types.ActIntroduced, HasMinutes: true},
	}

	status, introduced, meetingID, adopted := ResolutionOutcome(mentions, now)
	assert.Equal(t, types.ResAdopted, status)
	require.NotNil(t, introduced)
	assert.Equal(t, day(7), *introduced)
	assert.Equal(t, "evt-2", meetingID)
	require.NotNil(t, adopted)
	assert.Equal(t, day(14), *adopted)
}

func TestResolutionOutcomePendingMinutes(t *testing.T) {
	now := day(28)
	mentions := []Mention{
		{MeetingID: "evt-1", Date: day(7), Action: types.ActDiscussed, HasMinutes: false},
	}

	status, _, _, _ := ResolutionOutcome(mentions, now)
	assert.Equal(t, types.ResPendingMinutes, status)
}

func TestResolutionOutcomeUpcomingMeetingIsProposed(t *testing.T) {
	now := day(1)
	mentions := []Mention{
		{MeetingID: "evt-9", Date: day(14), Action: types.ActDiscussed, HasMinutes: false},
	}

	status, _, _, _ := ResolutionOutcome(mentions, now)
	assert.Equal(t, types.ResProposed, status)
}
