package routing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitcore/raptorcore/internal/journey"
	"github.com/transitcore/raptorcore/internal/network"
)

// fixedPeriod adapts a single pre-built network to PeriodNetwork for tests
// that never need to switch schedules.
type fixedPeriod struct {
	net *network.Network
}

func (f fixedPeriod) Active() *network.Network { return f.net }
func (f fixedPeriod) ActiveID() string         { return "test" }
func (f fixedPeriod) SetActive(id string) error {
	if id != "test" {
		return fmt.Errorf("unknown period %q", id)
	}
	return nil
}
func (f fixedPeriod) Periods() []string { return []string{"test"} }

func twoLegNetwork() *network.Network {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 600}},
		{ID: 2, Name: "R2", StopIDs: []int{2, 3}, TripIDs: []int{0},
			Schedule: []int32{8*3600 + 1200, 8*3600 + 1800}},
		// direct but slower alternative: fewer transfers, later arrival.
		{ID: 3, Name: "Direct", StopIDs: []int{1, 3}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 3600}},
	}
	return network.Build(stops, routes)
}

func TestForwardQueryReturnsParetoFrontier(t *testing.T) {
	net := twoLegNetwork()
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	journeys, err := f.ForwardQuery(1, 3, 8*3600)
	require.NoError(t, err)
	require.NotEmpty(t, journeys)

	// the direct route (0 transfers, arrives 09:00) and the two-leg route
	// (1 transfer, arrives 08:30) are both Pareto-optimal: neither dominates
	// the other on both dimensions.
	arrivals := make(map[int]int)
	for _, j := range journeys {
		arrivals[j.Rounds] = j.Arrival
	}
	assert.Equal(t, 8*3600+1800, arrivals[2], "two-leg journey arrives earlier with one transfer")
	assert.Equal(t, 8*3600+3600, arrivals[1], "direct journey arrives later with no transfer")
}

func TestForwardQueryUnknownStop(t *testing.T) {
	net := twoLegNetwork()
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	_, err := f.ForwardQuery(999, 3, 8*3600)
	assert.Error(t, err)
}

func TestArriveByQueryFindsLatestFeasibleDeparture(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0, 1, 2},
			Schedule: []int32{
				7 * 3600, 7*3600 + 600,
				8 * 3600, 8*3600 + 600,
				9 * 3600, 9*3600 + 600,
			}},
	}
	net := network.Build(stops, routes)
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	journeys, err := f.ArriveByQuery(1, 2, 8*3600+900, 0)
	require.NoError(t, err)
	require.NotEmpty(t, journeys)
	assert.LessOrEqual(t, journeys[0].Arrival, 8*3600+900)
	assert.Equal(t, 8*3600+600, journeys[0].Arrival, "the 08:00 departure is the latest that still arrives by 08:15")
}

func TestArriveByQueryInfeasible(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{9 * 3600, 9*3600 + 600}},
	}
	net := network.Build(stops, routes)
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	_, err := f.ArriveByQuery(1, 2, 8*3600, 0)
	assert.Error(t, err, "the only trip arrives after 08:00")
}

func TestArriveByQueryRespectsWindowBound(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{7 * 3600, 7*3600 + 600}},
	}
	net := network.Build(stops, routes)
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	// deadline 08:15 with a 30-minute window only searches back to 07:45,
	// so the 07:00 departure (arriving 07:10) falls outside the window even
	// though it would satisfy an unbounded search from 00:00.
	_, err := f.ArriveByQuery(1, 2, 8*3600+900, 30)
	assert.Error(t, err, "the only feasible departure is outside the 30-minute window")
}

func TestReconstructJourneyLegOrderAndIntermediateStops(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2, 3}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 300, 8*3600 + 600}},
	}
	net := network.Build(stops, routes)
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	journeys, err := f.ForwardQuery(1, 3, 8*3600)
	require.NoError(t, err)
	require.Len(t, journeys, 1)

	j := journeys[0]
	require.Len(t, j.Legs, 1)
	leg := j.Legs[0]
	assert.False(t, leg.IsTransfer)
	assert.Equal(t, net.StopIndex(1), leg.FromStopIndex)
	assert.Equal(t, net.StopIndex(3), leg.ToStopIndex)
	require.Len(t, leg.IntermediateStops, 1, "stop B is passed through without boarding or alighting")
	assert.Equal(t, net.StopIndex(2), leg.IntermediateStops[0].StopIndex)
	assert.Equal(t, 8*3600+300, leg.IntermediateStops[0].Time)
}

func TestReconstructJourneySetsTransitLegDirection(t *testing.T) {
	net := twoLegNetwork()
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	journeys, err := f.ForwardQuery(1, 3, 8*3600)
	require.NoError(t, err)

	for _, j := range journeys {
		for _, leg := range j.Legs {
			if leg.IsTransfer {
				continue
			}
			assert.NotEmpty(t, leg.Direction, "a transit leg's direction is the last stop name of its route pattern")
		}
	}

	// the direct route's single leg runs A -> C, so its direction is "C".
	var direct journey.Journey
	for _, j := range journeys {
		if j.Rounds == 1 {
			direct = j
		}
	}
	require.Len(t, direct.Legs, 1)
	assert.Equal(t, "C", direct.Legs[0].Direction)
}

func TestReconstructJourneyTransferLegDepartureAndOrdering(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B", Transfers: []network.Transfer{{TargetStopID: 3, WalkSeconds: 120}}},
		{ID: 3, Name: "C"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 300}},
	}
	net := network.Build(stops, routes)
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	journeys, err := f.ForwardQuery(1, 3, 8*3600)
	require.NoError(t, err)
	require.Len(t, journeys, 1)

	j := journeys[0]
	require.Len(t, j.Legs, 2, "a transit ride to B, then a walking transfer to C")

	transit, transfer := j.Legs[0], j.Legs[1]
	assert.False(t, transit.IsTransfer)
	assert.True(t, transfer.IsTransfer)

	assert.Equal(t, 8*3600, transit.Departure)
	assert.Equal(t, 8*3600+300, transit.Arrival, "the ride into B")
	assert.Equal(t, 8*3600+300, transfer.Departure, "a transfer's departure is its source stop's arrival, not zero")
	assert.Equal(t, 8*3600+300+120, transfer.Arrival)

	assert.LessOrEqual(t, transit.Arrival, transfer.Departure, "prevLeg.arr <= nextLeg.dep")
}

func TestForwardQueryFilteredWalkingOnlyWhenAllRoutesBlocked(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A", Transfers: []network.Transfer{{TargetStopID: 2, WalkSeconds: 100}}},
		{ID: 2, Name: "B"},
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 60}},
	}
	net := network.Build(stops, routes)
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	filter := &Filter{BlockedIDs: map[int]bool{1: true}}
	journeys, err := f.ForwardQueryFiltered(1, 2, 8*3600, filter)
	require.NoError(t, err)
	require.Len(t, journeys, 1, "with the only route blocked, the direct walking transfer is the sole result")

	j := journeys[0]
	require.Len(t, j.Legs, 1)
	leg := j.Legs[0]
	assert.True(t, leg.IsTransfer)
	assert.Equal(t, 8*3600, leg.Departure, "firstLeg.dep >= tau0, reached from the round-0 transfer relaxation")
	assert.Equal(t, 8*3600+100, leg.Arrival)
	assert.Equal(t, 0, j.Rounds, "zero transit legs boarded")
}

func TestSetPeriodDelegatesToRegistry(t *testing.T) {
	net := twoLegNetwork()
	f := NewFacade(fixedPeriod{net: net}, DefaultMaxRounds)

	assert.Equal(t, "test", f.CurrentPeriod())
	assert.NoError(t, f.SetPeriod("test"))
	assert.Error(t, f.SetPeriod("missing"))
	assert.Equal(t, []string{"test"}, f.AvailablePeriods())
}
