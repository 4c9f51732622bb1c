package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/lua/internal/models"
)

var testFeedLabels = FeedLabels{
	CalendarName:    "Lua",
	LoggedPeriod:    "Period",
	PredictedPeriod: "Predicted period",
	Ovulation:       "Ovulation",
	FertileWindow:   "Fertile window",
}

func TestBuildCalendarFeed(t *testing.T) {
	t.Parallel()

	snapshot := BuildSnapshot(regularPeriods(), mustDate(t, "2023-03-10"), SnapshotOptions{ForecastCycles: 2})
	payload, err := BuildCalendarFeed(snapshot, testFeedLabels, time.Date(2023, time.March, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	text := string(payload)
	assert.Contains(t, text, "X-WR-CALNAME:Lua\r\n")
	assert.NotContains(t, text, "X-WR-CALNAME;VALUE")
	assert.Contains(t, text, "UID:period-1@lua.local")
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20230101")
	assert.Contains(t, text, "DTEND;VALUE=DATE:20230105")
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20230326")
	assert.Contains(t, text, "DTEND;VALUE=DATE:20230330")
	assert.Contains(t, text, "UID:forecast-2@lua.local")

	cal, err := ical.NewDecoder(bytes.NewReader(payload)).Decode()
	require.NoError(t, err)
	events := cal.Events()
	// three logged periods plus period, fertile window and ovulation per forecast cycle
	require.Len(t, events, 3+2*3)

	summaries := map[string]int{}
	for _, event := range events {
		summary, err := event.Props.Text(ical.PropSummary)
		require.NoError(t, err)
		summaries[summary]++
	}
	assert.Equal(t, map[string]int{"Period": 3, "Predicted period": 2, "Fertile window": 2, "Ovulation": 2}, summaries)
}

func TestBuildCalendarFeedOngoingEndsToday(t *testing.T) {
	t.Parallel()

	periods := append(regularPeriods(), openPeriod(4, "2023-03-24"))
	snapshot := BuildSnapshot(periods, mustDate(t, "2023-03-26"), SnapshotOptions{ForecastCycles: 1})
	payload, err := BuildCalendarFeed(snapshot, testFeedLabels, time.Date(2023, time.March, 26, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	text := string(payload)
	start := strings.Index(text, "UID:period-4@lua.local")
	require.NotEqual(t, -1, start)
	assert.Contains(t, text, "DTEND;VALUE=DATE:20230327")
}

func TestBuildCalendarFeedEmpty(t *testing.T) {
	t.Parallel()

	snapshot := BuildSnapshot(nil, mustDate(t, "2023-03-10"), SnapshotOptions{})
	payload, err := BuildCalendarFeed(snapshot, testFeedLabels, time.Date(2023, time.March, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "BEGIN:VEVENT")
	assert.Contains(t, string(payload), "BEGIN:VCALENDAR")

	cal, err := ical.NewDecoder(bytes.NewReader(payload)).Decode()
	require.NoError(t, err)
	assert.Empty(t, cal.Events())
	name, err := cal.Props.Text(propCalendarName)
	require.NoError(t, err)
	assert.Equal(t, "Lua", name)
}

func TestBuildCalendarFeedDistinctUIDsForSameStart(t *testing.T) {
	t.Parallel()

	periods := []models.Period{
		closedPeriod(7, "2023-03-01", "2023-03-03"),
		closedPeriod(8, "2023-03-01", "2023-03-05"),
		{StartDate: "2023-03-01", EndDate: stringRef("2023-03-02")},
	}
	snapshot := BuildSnapshot(periods, mustDate(t, "2023-03-10"), SnapshotOptions{})
	payload, err := BuildCalendarFeed(snapshot, testFeedLabels, time.Date(2023, time.March, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	cal, err := ical.NewDecoder(bytes.NewReader(payload)).Decode()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, event := range cal.Events() {
		uid, err := event.Props.Text(ical.PropUID)
		require.NoError(t, err)
		if seen[uid] {
			t.Fatalf("expected unique event UIDs, got duplicate %q", uid)
		}
		seen[uid] = true
	}
	assert.Len(t, seen, 3)
	assert.True(t, seen["period-7@lua.local"])
	assert.True(t, seen["period-8@lua.local"])
}
