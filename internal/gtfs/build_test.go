package gtfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitcore/raptorcore/internal/models"
)

func sampleFeed() *GTFSFeed {
	return &GTFSFeed{
		Stops: []models.GTFSStop{
			{StopID: "A", StopName: "First", Lat: 14.70, Lon: -17.40},
			{StopID: "B", StopName: "Second", Lat: 14.71, Lon: -17.41},
			{StopID: "C", StopName: "Third", Lat: 14.72, Lon: -17.42},
		},
		Routes: []models.GTFSRoute{
			{RouteID: "R1", ShortName: "1", RouteType: 3},
		},
		Trips: []models.GTFSTrip{
			{RouteID: "R1", ServiceID: "WEEKDAY", TripID: "T1"},
			{RouteID: "R1", ServiceID: "WEEKDAY", TripID: "T2"},
		},
		StopTimes: []models.GTFSStopTime{
			{TripID: "T1", StopID: "A", StopSequence: 1, DepartureTime: "08:00:00"},
			{TripID: "T1", StopID: "B", StopSequence: 2, DepartureTime: "08:05:00"},
			{TripID: "T1", StopID: "C", StopSequence: 3, DepartureTime: "08:10:00"},
			{TripID: "T2", StopID: "A", StopSequence: 1, DepartureTime: "09:00:00"},
			{TripID: "T2", StopID: "B", StopSequence: 2, DepartureTime: "09:05:00"},
			{TripID: "T2", StopID: "C", StopSequence: 3, DepartureTime: "09:10:00"},
		},
		Calendars: []models.GTFSCalendar{
			{ServiceID: "WEEKDAY", Monday: true, Tuesday: true, Wednesday: true, Thursday: true,
				Friday: true, StartDate: "20260101", EndDate: "20261231"},
		},
	}
}

func TestBuildGroupsTripsIntoOneRoutePerPattern(t *testing.T) {
	feed := sampleFeed()
	// 2026-08-05 is a Wednesday.
	date, err := time.Parse("2006-01-02", "2026-08-05")
	require.NoError(t, err)

	stopInputs, routeInputs, err := Build(feed, BuildOptions{ServiceDate: date})
	require.NoError(t, err)
	require.Len(t, routeInputs, 1, "both trips share the same route id and stop sequence")

	route := routeInputs[0]
	assert.Equal(t, "1", route.Name)
	assert.Len(t, route.StopIDs, 3)
	assert.Len(t, route.TripIDs, 2)
	assert.Len(t, route.Schedule, 6, "two trips times three stops")
	// trips are sorted by first-stop departure: T1 (08:00) before T2 (09:00).
	assert.Equal(t, int32(8*3600), route.Schedule[0])
	assert.Equal(t, int32(9*3600), route.Schedule[3])

	assert.Len(t, stopInputs, 3)
	for _, s := range stopInputs {
		assert.NotEmpty(t, s.RouteIDs, "every stop served by the route records it")
	}
}

func TestBuildExcludesServicesNotActiveOnDate(t *testing.T) {
	feed := sampleFeed()
	// 2026-08-08 is a Saturday, outside the WEEKDAY calendar's days.
	date, err := time.Parse("2006-01-02", "2026-08-08")
	require.NoError(t, err)

	_, _, err = Build(feed, BuildOptions{ServiceDate: date})
	assert.Error(t, err, "no trips are active on a day the calendar excludes")
}

func TestBuildAttachesTransfersWithinThreshold(t *testing.T) {
	feed := sampleFeed()
	date, err := time.Parse("2006-01-02", "2026-08-05")
	require.NoError(t, err)

	stopInputs, _, err := Build(feed, BuildOptions{ServiceDate: date, TransferThresholdMeters: 100000})
	require.NoError(t, err)

	for _, s := range stopInputs {
		assert.NotEmpty(t, s.Transfers, "every stop pair is within the generous threshold")
	}
}

func TestBuildSkipsTransfersWhenThresholdIsZero(t *testing.T) {
	feed := sampleFeed()
	date, err := time.Parse("2006-01-02", "2026-08-05")
	require.NoError(t, err)

	stopInputs, _, err := Build(feed, BuildOptions{ServiceDate: date})
	require.NoError(t, err)

	for _, s := range stopInputs {
		assert.Empty(t, s.Transfers)
	}
}

func TestJoinIDsAndDedupInts(t *testing.T) {
	assert.Equal(t, "A|B|C", joinIDs([]string{"A", "B", "C"}))
	assert.Equal(t, "", joinIDs(nil))
	assert.Equal(t, []int{1, 2, 3}, dedupInts([]int{1, 1, 2, 3, 3, 3}))
}
