package routing

import (
	"fmt"

	"github.com/transitcore/raptorcore/internal/journey"
	"github.com/transitcore/raptorcore/internal/network"
)

// DefaultMaxRounds bounds the number of transfers a query will consider
// unless a caller asks for fewer. Five rounds covers all but pathological
// itineraries while keeping the parent matrices small.
const DefaultMaxRounds = 5

// PeriodNetwork is the subset of period.Registry the facade depends on, kept
// as an interface so routing tests can supply a single fixed network without
// pulling in the tcodec/period machinery.
type PeriodNetwork interface {
	Active() *network.Network
	ActiveID() string
	SetActive(id string) error
	Periods() []string
}

// Facade is the query-facing entry point: it owns one reusable State per
// active network and turns raw stop/time queries into reconstructed
// journeys, hiding the round-loop bookkeeping in engine.go from callers.
type Facade struct {
	periods PeriodNetwork
	state   *State
	maxK    int
}

// NewFacade builds a Facade against periods, allocating its State against
// whichever network is active at construction time.
func NewFacade(periods PeriodNetwork, maxRounds int) *Facade {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	f := &Facade{periods: periods, maxK: maxRounds}
	f.state = NewState(periods.Active(), maxRounds)
	return f
}

// SetPeriod switches the active network by id; the next query reallocates
// the facade's State for the new network (EnsureCapacity resizes whenever
// the network differs from the one the State was last sized for).
func (f *Facade) SetPeriod(id string) error {
	return f.periods.SetActive(id)
}

// CurrentPeriod returns the id of the network the facade is currently
// querying against.
func (f *Facade) CurrentPeriod() string {
	return f.periods.ActiveID()
}

// AvailablePeriods lists every period this facade could be switched to.
func (f *Facade) AvailablePeriods() []string {
	return f.periods.Periods()
}

// SearchStopsByName delegates to the active network's substring search.
func (f *Facade) SearchStopsByName(substr string) []network.Stop {
	return f.periods.Active().SearchStopsByName(substr)
}

// ForwardQuery finds every Pareto-optimal (fewer transfers vs earlier
// arrival) journey from originStopID departing no earlier than
// departSeconds to destStopID, using the active network's stop ids.
func (f *Facade) ForwardQuery(originStopID, destStopID int, departSeconds int) ([]journey.Journey, error) {
	net := f.periods.Active()
	origin := net.StopIndex(originStopID)
	dest := net.StopIndex(destStopID)
	if origin < 0 {
		return nil, fmt.Errorf("routing: unknown origin stop id %d", originStopID)
	}
	if dest < 0 {
		return nil, fmt.Errorf("routing: unknown destination stop id %d", destStopID)
	}

	f.state.EnsureCapacity(net, f.maxK)
	Route(net, f.state, []int{origin}, departSeconds, []int{dest}, f.maxK, nil)

	return reconstructPareto(net, f.state, dest, f.maxK), nil
}

// ForwardQueryFiltered behaves like ForwardQuery but restricts the routes
// the round loop will board according to filter.
func (f *Facade) ForwardQueryFiltered(originStopID, destStopID int, departSeconds int, filter *Filter) ([]journey.Journey, error) {
	net := f.periods.Active()
	origin := net.StopIndex(originStopID)
	dest := net.StopIndex(destStopID)
	if origin < 0 {
		return nil, fmt.Errorf("routing: unknown origin stop id %d", originStopID)
	}
	if dest < 0 {
		return nil, fmt.Errorf("routing: unknown destination stop id %d", destStopID)
	}

	f.state.EnsureCapacity(net, f.maxK)
	Route(net, f.state, []int{origin}, departSeconds, []int{dest}, f.maxK, filter)

	return reconstructPareto(net, f.state, dest, f.maxK), nil
}

// DefaultArriveByWindowMinutes bounds how far before the deadline
// ArriveByQuery will search for a feasible departure when a caller doesn't
// specify its own window.
const DefaultArriveByWindowMinutes = 120

// ArriveByQuery finds the latest departure time from originStopID that
// still arrives at destStopID by arriveBySeconds, resolved to 60-second
// granularity by binary search over ForwardQuery restricted to the window
// [max(0, arriveBySeconds-windowMinutes*60), arriveBySeconds]. It returns
// the journeys found at that latest feasible departure, or an error if no
// departure in that window reaches the destination in time.
func (f *Facade) ArriveByQuery(originStopID, destStopID int, arriveBySeconds int, windowMinutes int) ([]journey.Journey, error) {
	if windowMinutes <= 0 {
		windowMinutes = DefaultArriveByWindowMinutes
	}
	windowStart := arriveBySeconds - windowMinutes*60
	if windowStart < 0 {
		windowStart = 0
	}

	feasible := func(depart int) ([]journey.Journey, bool) {
		js, err := f.ForwardQuery(originStopID, destStopID, depart)
		if err != nil || len(js) == 0 {
			return nil, false
		}
		best := js[len(js)-1].Arrival
		for _, j := range js {
			if j.Arrival < best {
				best = j.Arrival
			}
		}
		return js, best <= arriveBySeconds
	}

	if _, ok := feasible(windowStart); !ok {
		return nil, fmt.Errorf("routing: no journey from stop %d to stop %d departing in the last %d minutes arrives by %d", originStopID, destStopID, windowMinutes, arriveBySeconds)
	}

	lo, hi := windowStart, arriveBySeconds
	for lo+60 < hi {
		mid := ((lo + hi) / 2 / 60) * 60
		if _, ok := feasible(mid); ok {
			lo = mid
		} else {
			hi = mid
		}
	}

	js, ok := feasible(lo)
	if !ok {
		js, _ = feasible(windowStart)
	}
	return js, nil
}

// reconstructPareto walks every round's arrival at dest and reconstructs a
// journey for each round whose arrival strictly improves on the previous
// (fewer transfers strictly better arrival is the Pareto frontier; rounds
// tying or losing to an earlier round's arrival are dominated and skipped).
// A journey with no legs (the destination is the origin) is not emitted, so
// a same-stop query returns an empty list.
func reconstructPareto(net *network.Network, state *State, dest int, maxK int) []journey.Journey {
	var out []journey.Journey
	best := Infinity
	for round := 0; round <= maxK; round++ {
		arrival := state.bestArrival[round][dest]
		if arrival >= Infinity || arrival >= best {
			continue
		}
		best = arrival
		j := reconstructJourney(net, state, dest, round)
		if len(j.Legs) == 0 {
			continue
		}
		out = append(out, j)
	}
	return out
}

// reconstructJourney walks the parent chain for dest at round backwards to
// the origin and returns the resulting journey with legs in travel order.
func reconstructJourney(net *network.Network, state *State, dest, round int) journey.Journey {
	var legs []journey.Leg

	stop := dest
	r := round
	for {
		ps := int(state.parentStop[r][stop])
		if ps < 0 {
			break
		}
		routeIdx := int(state.parentRoute[r][stop])
		arrival := state.bestArrival[r][stop]

		if routeIdx < 0 {
			legs = append(legs, journey.Leg{
				FromStopIndex: ps,
				ToStopIndex:   stop,
				IsTransfer:    true,
				Departure:     int(state.parentDeparture[r][stop]),
				Arrival:       arrival,
			})
			prevRound := int(state.parentRound[r][stop])
			stop = ps
			r = prevRound
			continue
		}

		route := net.Route(routeIdx)
		trip := int(state.parentTrip[r][stop])
		boardPos := int(state.parentBoardPos[r][stop])
		alightPos := int(state.parentAlightPos[r][stop])
		departure := int(state.parentDeparture[r][stop])

		var mid []journey.StopTime
		for pos := boardPos + 1; pos < alightPos; pos++ {
			si := route.StopIndices[pos]
			if si < 0 {
				continue
			}
			mid = append(mid, journey.StopTime{StopIndex: int(si), Time: int(route.At(trip, pos))})
		}

		lastPos := len(route.StopIndices) - 1
		direction := ""
		if lastSi := route.StopIndices[lastPos]; lastSi >= 0 {
			direction = net.Stop(int(lastSi)).Name
		}

		legs = append(legs, journey.Leg{
			FromStopIndex:     ps,
			ToStopIndex:       stop,
			Departure:         departure,
			Arrival:           arrival,
			RouteName:         route.Name,
			Direction:         direction,
			IntermediateStops: mid,
		})

		prevRound := int(state.parentRound[r][stop])
		stop = ps
		r = prevRound
	}

	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}

	transitLegs := 0
	for _, l := range legs {
		if !l.IsTransfer {
			transitLegs++
		}
	}

	return journey.Journey{
		DestinationIndex: dest,
		Rounds:           transitLegs,
		Arrival:          state.bestArrival[round][dest],
		Legs:             legs,
	}
}
