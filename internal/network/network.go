// Package network holds the routing core's flat, immutable-after-build data
// model: stops, direction-specific routes with row-major trip schedules, and
// the derived indices the round-based algorithm scans on every query.
//
// Nothing in this package touches a database or the filesystem — it is built
// once from plain input slices (by internal/gtfs/build.go for a fresh GTFS
// import, or by internal/tcodec for a binary reload) and then read by many
// concurrent facades sharing the same *Network.
package network

import (
	"sort"
	"strings"
)

const noIndex = -1

// ImplicitTransferSeconds is the fixed walk cost assigned to every same-name
// transfer, whether or not an explicit transfer links the same two stops.
const ImplicitTransferSeconds = 120

// Stop is one immutable stop record, addressed by its dense internal index.
type Stop struct {
	ID   int
	Name string
	Lat  float64
	Lon  float64
}

// Transfer is one explicit walking edge out of a stop, expressed against
// stop ids (as read from the source data, before index resolution).
type Transfer struct {
	TargetStopID int
	WalkSeconds  int
}

// StopInput is the pre-index-resolution form of a stop, as produced by the
// GTFS builder or the binary loader.
type StopInput struct {
	ID        int
	Name      string
	Lat       float64
	Lon       float64
	RouteIDs  []int
	Transfers []Transfer
}

// RouteInput is the pre-index-resolution form of a route: a stop pattern by
// id plus a row-major T×S schedule already sorted by first-stop time.
type RouteInput struct {
	ID       int
	Name     string
	StopIDs  []int
	TripIDs  []int
	Schedule []int32 // len == len(TripIDs) * len(StopIDs)
}

// Route is one direction-specific line: a fixed stop pattern (by internal
// stop index, so the hot loop never hashes) and its T×S schedule.
type Route struct {
	ID          int
	Name        string
	StopIndices []int32 // length S; noIndex for an unresolved stop id
	Trips       int
	Schedule    []int32 // length Trips*S, schedule[t*S+s]
}

func (r *Route) numStops() int {
	return len(r.StopIndices)
}

// At returns the absolute time trip t serves pattern position s.
func (r *Route) At(t, s int) int32 {
	return r.Schedule[t*r.numStops()+s]
}

// Network is the derived, read-only structure the routing core scans.
// Every accessor is safe to call concurrently once Build has returned.
type Network struct {
	stops         []Stop
	routes        []Route
	stopIDToIndex map[int]int

	// routesByStopIndex[i] is the deduplicated set of internal route indices
	// whose pattern contains stop index i, expanded across route objects
	// that share a routeId (directional variants).
	routesByStopIndex [][]int32

	// Each route's per-position stop indices live only on Route.StopIndices;
	// the network keeps no separate copy of them.
	explicitTransfers [][]int32 // flat [target0, walk0, target1, walk1, ...] per stop
	implicitTransfers [][]int32 // other stop indices sharing this stop's name
}

// Build resolves stop ids to dense indices, resolves every route pattern and
// transfer against them, and precomputes the derived indices described in
// §3/§4.A of the design. Unknown stop id references resolve to the sentinel
// -1 and are skipped at scan time rather than treated as an error.
func Build(stopInputs []StopInput, routeInputs []RouteInput) *Network {
	n := &Network{
		stops:         make([]Stop, len(stopInputs)),
		stopIDToIndex: make(map[int]int, len(stopInputs)),
	}

	for i, si := range stopInputs {
		n.stops[i] = Stop{ID: si.ID, Name: si.Name, Lat: si.Lat, Lon: si.Lon}
		n.stopIDToIndex[si.ID] = i
	}

	n.explicitTransfers = make([][]int32, len(n.stops))
	for i, si := range stopInputs {
		flat := make([]int32, 0, len(si.Transfers)*2)
		for _, tr := range si.Transfers {
			target := n.StopIndex(tr.TargetStopID)
			if target == noIndex || target == i {
				continue
			}
			flat = append(flat, int32(target), int32(tr.WalkSeconds))
		}
		n.explicitTransfers[i] = flat
	}

	n.routes = make([]Route, len(routeInputs))
	for r, ri := range routeInputs {
		stopIdx := make([]int32, len(ri.StopIDs))
		for s, sid := range ri.StopIDs {
			stopIdx[s] = int32(n.StopIndex(sid))
		}
		n.routes[r] = Route{
			ID:          ri.ID,
			Name:        ri.Name,
			StopIndices: stopIdx,
			Trips:       len(ri.TripIDs),
			Schedule:    ri.Schedule,
		}
	}

	n.routesByStopIndex = make([][]int32, len(n.stops))
	seen := make(map[int]map[int32]bool)
	for r := range n.routes {
		for _, si := range n.routes[r].StopIndices {
			if si == noIndex {
				continue
			}
			i := int(si)
			if seen[i] == nil {
				seen[i] = make(map[int32]bool)
			}
			if seen[i][int32(r)] {
				continue
			}
			seen[i][int32(r)] = true
			n.routesByStopIndex[i] = append(n.routesByStopIndex[i], int32(r))
		}
	}

	n.implicitTransfers = buildImplicitTransfers(n.stops)

	return n
}

// buildImplicitTransfers groups stops by exact display name and links every
// pair within a group, excluding self, with no duplicate entries.
func buildImplicitTransfers(stops []Stop) [][]int32 {
	byName := make(map[string][]int32, len(stops))
	for i, s := range stops {
		byName[s.Name] = append(byName[s.Name], int32(i))
	}

	out := make([][]int32, len(stops))
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(a, b int) bool { return group[a] < group[b] })
		for _, i := range group {
			others := make([]int32, 0, len(group)-1)
			for _, j := range group {
				if j != i {
					others = append(others, j)
				}
			}
			out[i] = others
		}
	}
	return out
}

// StopIndex resolves a stop id to its internal index, or -1 if unknown.
func (n *Network) StopIndex(stopID int) int {
	if i, ok := n.stopIDToIndex[stopID]; ok {
		return i
	}
	return noIndex
}

// StopCount returns the number of stops in the network.
func (n *Network) StopCount() int { return len(n.stops) }

// RouteCount returns the number of route objects (directional variants
// counted separately) in the network.
func (n *Network) RouteCount() int { return len(n.routes) }

// RouteByID looks up a route object by its external id. Route ids are not
// indexed since this is an admin/API-surface lookup, never called from the
// round loop.
func (n *Network) RouteByID(id int) (*Route, int, bool) {
	for i := range n.routes {
		if n.routes[i].ID == id {
			return &n.routes[i], i, true
		}
	}
	return nil, 0, false
}

// Stop returns the stop record at internal index i.
func (n *Network) Stop(i int) Stop { return n.stops[i] }

// Route returns a pointer to the route object at internal index r.
func (n *Network) Route(r int) *Route { return &n.routes[r] }

// RoutesByStop returns the internal route indices serving stop index i.
func (n *Network) RoutesByStop(i int) []int32 { return n.routesByStopIndex[i] }

// ExplicitTransfers returns the flat [target, walk, target, walk, ...] pairs
// for stop index i.
func (n *Network) ExplicitTransfers(i int) []int32 { return n.explicitTransfers[i] }

// ImplicitTransfers returns the other stop indices sharing stop i's display
// name.
func (n *Network) ImplicitTransfers(i int) []int32 { return n.implicitTransfers[i] }

// SearchStopsByName performs a case-insensitive substring search over stop
// display names, returning matches in index order.
func (n *Network) SearchStopsByName(substr string) []Stop {
	needle := strings.ToLower(substr)
	var out []Stop
	for _, s := range n.stops {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			out = append(out, s)
		}
	}
	return out
}

// CollectRoutesServingPreviousMarks unions routesByStopIndex over every stop
// index in markedPrev, writing each internal route index to outBuffer at
// most once. seenScratch is a caller-owned []bool of length RouteCount() that
// this call both consumes (as a dedup set) and clears back to all-false
// before returning, so no allocation is needed across repeated calls.
func (n *Network) CollectRoutesServingPreviousMarks(markedPrev []int32, seenScratch []bool, outBuffer []int32) ([]int32, int) {
	out := outBuffer[:0]
	for _, i := range markedPrev {
		for _, r := range n.routesByStopIndex[i] {
			if seenScratch[r] {
				continue
			}
			seenScratch[r] = true
			out = append(out, r)
		}
	}
	for _, r := range out {
		seenScratch[r] = false
	}
	return out, len(out)
}

