// Package routing implements the round-based earliest-arrival search: given
// a built *network.Network, one or more origin stops with a departure time,
// and one or more destination stops, Route computes the Pareto-optimal
// arrival times by number of transfers, storing enough parent information in
// a *State for a caller to reconstruct full journeys.
package routing

import "github.com/transitcore/raptorcore/internal/network"

// Route runs up to k rounds of the scan-routes/scan-transfers loop against
// net, starting every stop in origins at tau0, and returns the round at
// which the best destination arrival was first achieved (or -1 if no
// destination was reached). Route sizes state for net and k via
// EnsureCapacity and resets it before running.
func Route(net *network.Network, state *State, origins []int, tau0 int, destinations []int, k int, filter *Filter) int {
	state.EnsureCapacity(net, k)
	state.Reset()

	bestDestArrival := Infinity
	bestDestRound := -1

	for _, o := range origins {
		if o < 0 {
			continue
		}
		state.bestArrival[0][o] = tau0
		state.mark(o)
	}
	relaxTransfersRound(net, state, 0, bestDestArrival)

	updateDestBound := func(round int) {
		for _, d := range destinations {
			if d < 0 {
				continue
			}
			if a := state.bestArrival[round][d]; a < bestDestArrival {
				bestDestArrival = a
				bestDestRound = round
			}
		}
	}
	updateDestBound(0)

	for round := 1; round <= k; round++ {
		state.shiftMarks()
		if len(state.prevList) == 0 {
			break
		}

		state.lastMaxRoundUsed = round

		// carry forward the previous round's best-so-far (arrival and parent
		// tuple) before relaxing, since a stop not improved this round should
		// keep its round k-1 value and provenance rather than read as unset.
		copy(state.bestArrival[round], state.bestArrival[round-1])
		copy(state.parentStop[round], state.parentStop[round-1])
		copy(state.parentRound[round], state.parentRound[round-1])
		copy(state.parentRoute[round], state.parentRoute[round-1])
		copy(state.parentDeparture[round], state.parentDeparture[round-1])
		copy(state.parentTrip[round], state.parentTrip[round-1])
		copy(state.parentBoardPos[round], state.parentBoardPos[round-1])
		copy(state.parentAlightPos[round], state.parentAlightPos[round-1])

		routes, _ := net.CollectRoutesServingPreviousMarks(state.prevList, state.routeSeen, state.routeBuf[:0])

		for _, ri := range routes {
			r := int(ri)
			route := net.Route(r)
			if !filter.Allows(route.ID, route.Name) {
				continue
			}
			scanRoute(net, state, round, r, route, bestDestArrival)
		}

		relaxTransfersRound(net, state, round, bestDestArrival)
		updateDestBound(round)
	}

	return bestDestRound
}

// scanRoute walks one route's stop pattern in order, boarding the earliest
// reachable trip at each previously-marked stop and relaxing every later
// stop the currently boarded trip serves.
func scanRoute(net *network.Network, state *State, round, r int, route *network.Route, bestDestArrival int) {
	trip := -1
	boardStop := -1
	boardPos := -1
	boardDeparture := 0

	for pos, si := range route.StopIndices {
		if si == noIndexSentinel {
			continue
		}
		stop := int(si)

		if trip >= 0 {
			arrival := int(route.At(trip, pos))
			if arrival < bestDestArrival && arrival < state.bestArrival[round][stop] {
				state.bestArrival[round][stop] = arrival
				state.setParent(round, stop, boardStop, round-1, r, boardDeparture, trip, boardPos, pos)
				state.mark(stop)
			}
		}

		// try to board (or re-board an earlier trip) at this stop, using the
		// arrival established as of the previous round: this ordering (check
		// reboard after relaxing the current trip's arrival at this stop, but
		// against the previous round's bound) keeps a single ride from
		// boarding and alighting at the same stop in the same pass.
		if state.markedPrev[stop] {
			bound := state.bestArrival[round-1][stop]
			if better, ok := earliestTrip(route, pos, bound, trip); ok {
				trip = better
				boardStop = stop
				boardPos = pos
				boardDeparture = int(route.At(trip, pos))
			}
		}
	}
}

// earliestTrip finds the earliest trip on route departing pattern position
// pos at or after minDeparture, provided it boards strictly earlier than
// currentTrip (or currentTrip is -1). Trips are stored sorted by their
// first-stop departure time and never overtake one another, so
// route.At(t, pos) is non-decreasing in t and a binary search applies.
func earliestTrip(route *network.Route, pos, minDeparture, currentTrip int) (int, bool) {
	lo, hi := 0, route.Trips
	for lo < hi {
		mid := (lo + hi) / 2
		if int(route.At(mid, pos)) >= minDeparture {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo >= route.Trips {
		return 0, false
	}
	if currentTrip >= 0 && lo >= currentTrip {
		return 0, false
	}
	return lo, true
}

// relaxTransfersRound applies every explicit and implicit transfer out of a
// stop marked during round, writing results into the same round's arrival
// row. Transfers do not chain within a round: a stop reached only via a
// transfer this round is not itself a transfer source in this round; it is
// only added to markedList, so on the next shiftMarks it enters markedPrev
// and serves as a boarding point for the next round's route scan.
func relaxTransfersRound(net *network.Network, state *State, round, bestDestArrival int) {
	// markedList's length is fixed by range at loop entry, so mark() appending
	// newly relaxed stops onto the same slice during this loop is safe: those
	// appends land at indices beyond what this iteration already committed to
	// visiting, whether or not the append grows the backing array in place.
	sources := state.markedList

	for _, si := range sources {
		from := int(si)
		arrival := state.bestArrival[round][from]

		pairs := net.ExplicitTransfers(from)
		for p := 0; p+1 < len(pairs); p += 2 {
			to := int(pairs[p])
			walk := int(pairs[p+1])
			candidate := arrival + walk
			relaxTransfer(state, round, from, to, candidate, arrival, bestDestArrival)
		}

		for _, ti := range net.ImplicitTransfers(from) {
			to := int(ti)
			candidate := arrival + network.ImplicitTransferSeconds
			relaxTransfer(state, round, from, to, candidate, arrival, bestDestArrival)
		}
	}
}

// relaxTransfer relaxes a walk from a stop that arrived at departure (the
// source stop's own best arrival this round) to to, arriving at candidate.
// The parent's departure field is set to departure per spec: a transfer
// parent records departure=bestArrival[k][i] of its source stop, not zero,
// so a reconstructed walking leg's Departure is the moment the walk began.
func relaxTransfer(state *State, round, from, to, candidate, departure, bestDestArrival int) {
	if candidate >= bestDestArrival || candidate >= state.bestArrival[round][to] {
		return
	}
	state.bestArrival[round][to] = candidate
	state.setParent(round, to, from, round, -1, departure, -1, -1, -1)
	state.mark(to)
}

const noIndexSentinel = -1
