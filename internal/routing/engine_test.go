package routing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transitcore/raptorcore/internal/network"
)

// buildLine builds a single-route network over the given stop ids, with one
// trip departing the first stop at startSecs and advancing headwaySecs per
// stop, plus one isolated stop (id 0) served by nothing. Every stop gets its
// own name, so no same-name implicit transfers link them.
func buildLine(stopIDs []int, startSecs, headwaySecs int) *network.Network {
	stops := make([]network.StopInput, 0, len(stopIDs)+1)
	stops = append(stops, network.StopInput{ID: 0, Name: "isolated"})
	for _, id := range stopIDs {
		stops = append(stops, network.StopInput{ID: id, Name: fmt.Sprintf("stop %d", id)})
	}

	schedule := make([]int32, len(stopIDs))
	for s := range stopIDs {
		schedule[s] = int32(startSecs + s*headwaySecs)
	}

	routes := []network.RouteInput{
		{ID: 1, Name: "L1", StopIDs: stopIDs, TripIDs: []int{0}, Schedule: schedule},
	}
	return network.Build(stops, routes)
}

func TestRouteDirectSingleLeg(t *testing.T) {
	net := buildLine([]int{1, 2, 3}, 8*3600, 300)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	round := Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, nil)

	assert.Equal(t, 1, round, "one boarding, zero transfers, reached in round 1")
	assert.Equal(t, 8*3600+600, state.BestArrival(1, dest))
}

func TestRouteUnreachableDestination(t *testing.T) {
	net := buildLine([]int{1, 2, 3}, 8*3600, 300)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(0) // the isolated stop, served by no route

	round := Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, nil)
	assert.Equal(t, -1, round)
}

func TestRouteRespectsDepartureTime(t *testing.T) {
	net := buildLine([]int{1, 2, 3}, 8*3600, 300)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	round := Route(net, state, []int{origin}, 9*3600, []int{dest}, DefaultMaxRounds, nil)
	assert.Equal(t, -1, round, "no trip departs at or after 09:00")
}

func TestRouteTwoLegTransfer(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C"},
	}
	// Route 1: A -> B, departs A at 08:00, arrives B at 08:10.
	// Route 2: B -> C, departs B at 08:20, arrives C at 08:30.
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 600}},
		{ID: 2, Name: "R2", StopIDs: []int{2, 3}, TripIDs: []int{0},
			Schedule: []int32{8*3600 + 1200, 8*3600 + 1800}},
	}
	net := network.Build(stops, routes)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	round := Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, nil)

	assert.Equal(t, 2, round, "requires boarding a second route in round 2")
	assert.Equal(t, 8*3600+1800, state.BestArrival(2, dest))
}

func TestRouteFilterExcludesRoute(t *testing.T) {
	net := buildLine([]int{1, 2, 3}, 8*3600, 300)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	filter := &Filter{BlockedIDs: map[int]bool{1: true}}
	round := Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, filter)
	assert.Equal(t, -1, round, "the only route serving this pattern is blocked")
}

func TestRouteExplicitTransfer(t *testing.T) {
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
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	round := Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, nil)

	assert.Equal(t, 1, round, "explicit transfers relax within the same round as the ride that reaches them")
	assert.Equal(t, 8*3600+300+120, state.BestArrival(1, dest))

	destIdx := dest
	sourceIdx := net.StopIndex(2)
	assert.Equal(t, int32(sourceIdx), state.parentStop[1][destIdx])
	assert.Equal(t, int32(-1), state.parentRoute[1][destIdx], "transfer parents carry no route")
	assert.Equal(t, int32(8*3600+300), state.parentDeparture[1][destIdx],
		"a transfer parent's departure is bestArrival[k][i] of its source stop, not zero")
}

func TestRouteImplicitTransferSharedStopName(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "Downtown"},
		{ID: 3, Name: "Downtown"}, // same display name as stop 2, no explicit link needed
	}
	routes := []network.RouteInput{
		{ID: 1, Name: "R1", StopIDs: []int{1, 2}, TripIDs: []int{0},
			Schedule: []int32{8 * 3600, 8*3600 + 300}},
	}
	net := network.Build(stops, routes)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	round := Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, nil)

	assert.Equal(t, 1, round)
	assert.Equal(t, 8*3600+300+network.ImplicitTransferSeconds, state.BestArrival(1, dest))
}

func TestStateResetBoundedByLastRoundUsed(t *testing.T) {
	net := buildLine([]int{1, 2, 3}, 8*3600, 300)
	state := NewState(net, DefaultMaxRounds)

	origin := net.StopIndex(1)
	dest := net.StopIndex(3)

	Route(net, state, []int{origin}, 8*3600, []int{dest}, DefaultMaxRounds, nil)
	assert.Equal(t, Infinity, state.BestArrival(3, dest), "round 3 was never touched by a direct single-leg trip")

	// a second query, departing after the only trip, must not see stale
	// round-1 data left over from the first query.
	round := Route(net, state, []int{origin}, 9*3600, []int{dest}, DefaultMaxRounds, nil)
	assert.Equal(t, -1, round)
	assert.Equal(t, Infinity, state.BestArrival(1, dest))
}
