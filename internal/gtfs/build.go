package gtfs

import (
	"fmt"
	"sort"
	"time"

	"github.com/transitcore/raptorcore/internal/models"
	"github.com/transitcore/raptorcore/internal/network"
)

// BuildOptions configures how a parsed feed is turned into a flat network.
type BuildOptions struct {
	// ServiceDate selects which GTFS services are active; only trips whose
	// service id is active on this date are included.
	ServiceDate time.Time
	// TransferThresholdMeters is the maximum walking distance between two
	// distinct stops for an explicit transfer edge to be generated between
	// them.
	TransferThresholdMeters float64
}

// pattern is the direction-specific grouping key: a route id plus its
// ordered stop sequence. Two trips with the same route id but different
// stop orderings (a there-and-back service, a short-turn variant) become
// separate network.RouteInput entries, each keeping the route's own display
// name.
type pattern struct {
	routeID string
	stops   string // ordered stop ids joined, used only as a map key
}

// Build converts a parsed feed into the network.Build inputs, resolving
// active services for opts.ServiceDate, grouping trips into direction
// patterns, and deriving explicit transfers from stop proximity.
//
// String GTFS ids are remapped to dense integer ids on the way out, since
// network.StopInput/RouteInput and the tcodec wire format both key on int.
func Build(feed *GTFSFeed, opts BuildOptions) ([]network.StopInput, []network.RouteInput, error) {
	active := ActiveServices(feed, opts.ServiceDate)

	stopIDs := make(map[string]int, len(feed.Stops))
	stopByID := make(map[string]models.GTFSStop, len(feed.Stops))
	for i, s := range feed.Stops {
		stopIDs[s.StopID] = i + 1
		stopByID[s.StopID] = s
	}

	routeByID := make(map[string]models.GTFSRoute, len(feed.Routes))
	for _, r := range feed.Routes {
		routeByID[r.RouteID] = r
	}

	tripByID := make(map[string]models.GTFSTrip, len(feed.Trips))
	for _, t := range feed.Trips {
		tripByID[t.TripID] = t
	}

	stopTimesByTrip := make(map[string][]models.GTFSStopTime)
	for _, st := range feed.StopTimes {
		stopTimesByTrip[st.TripID] = append(stopTimesByTrip[st.TripID], st)
	}
	for tripID, times := range stopTimesByTrip {
		sort.Slice(times, func(a, b int) bool { return times[a].StopSequence < times[b].StopSequence })
		stopTimesByTrip[tripID] = times
	}

	type variant struct {
		routeID  string
		stopSeq  []string
		tripIDs  []string
		schedule [][]int32 // one row per trip, len == len(stopSeq)
	}
	variants := make(map[pattern]*variant)
	var order []pattern

	for tripID, times := range stopTimesByTrip {
		trip, ok := tripByID[tripID]
		if !ok || !active[trip.ServiceID] {
			continue
		}
		if _, ok := routeByID[trip.RouteID]; !ok {
			continue
		}

		row := make([]int32, len(times))
		stopSeq := make([]string, len(times))
		valid := true
		for i, st := range times {
			secs, err := ParseTimeToSeconds(st.DepartureTime)
			if err != nil {
				valid = false
				break
			}
			row[i] = int32(secs)
			stopSeq[i] = st.StopID
		}
		if !valid || len(stopSeq) < 2 {
			continue
		}

		key := pattern{routeID: trip.RouteID, stops: joinIDs(stopSeq)}
		v, ok := variants[key]
		if !ok {
			v = &variant{routeID: trip.RouteID, stopSeq: stopSeq}
			variants[key] = v
			order = append(order, key)
		}
		v.tripIDs = append(v.tripIDs, tripID)
		v.schedule = append(v.schedule, row)
	}

	routeInputs := make([]network.RouteInput, 0, len(order))
	stopRouteIDs := make(map[string][]int)
	nextRouteID := 1

	for _, key := range order {
		v := variants[key]

		tripOrder := make([]int, len(v.tripIDs))
		for i := range tripOrder {
			tripOrder[i] = i
		}
		sort.SliceStable(tripOrder, func(a, b int) bool {
			return v.schedule[tripOrder[a]][0] < v.schedule[tripOrder[b]][0]
		})

		numStops := len(v.stopSeq)
		flat := make([]int32, 0, len(v.tripIDs)*numStops)
		tripIntIDs := make([]int, len(v.tripIDs))
		for pos, ti := range tripOrder {
			flat = append(flat, v.schedule[ti]...)
			tripIntIDs[pos] = pos // synthetic, position within the variant
		}

		stopIntIDs := make([]int, numStops)
		for i, sid := range v.stopSeq {
			id, ok := stopIDs[sid]
			if !ok {
				continue
			}
			stopIntIDs[i] = id
			stopRouteIDs[sid] = append(stopRouteIDs[sid], nextRouteID)
		}

		routeName := routeDisplayName(routeByID[v.routeID])
		routeInputs = append(routeInputs, network.RouteInput{
			ID:       nextRouteID,
			Name:     routeName,
			StopIDs:  stopIntIDs,
			TripIDs:  tripIntIDs,
			Schedule: flat,
		})
		nextRouteID++
	}

	stopInputs := make([]network.StopInput, 0, len(feed.Stops))
	for _, s := range feed.Stops {
		stopInputs = append(stopInputs, network.StopInput{
			ID:       stopIDs[s.StopID],
			Name:     s.StopName,
			Lat:      s.Lat,
			Lon:      s.Lon,
			RouteIDs: dedupInts(stopRouteIDs[s.StopID]),
		})
	}

	if opts.TransferThresholdMeters > 0 {
		attachTransfers(stopInputs, feed.Stops, stopIDs, opts.TransferThresholdMeters)
	}

	if len(routeInputs) == 0 {
		return stopInputs, routeInputs, fmt.Errorf("gtfs: no active trips resolved for service date %s", opts.ServiceDate.Format("2006-01-02"))
	}

	return stopInputs, routeInputs, nil
}

func routeDisplayName(r models.GTFSRoute) string {
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.LongName
}

func joinIDs(ids []string) string {
	total := 0
	for _, id := range ids {
		total += len(id) + 1
	}
	buf := make([]byte, 0, total)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, '|')
		}
		buf = append(buf, id...)
	}
	return string(buf)
}

func dedupInts(ids []int) []int {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// attachTransfers assigns each network.StopInput a walking-transfer list to
// every other stop within thresholdMeters, using the same haversine formula
// the importer uses for stop deduplication. Stops at identical coordinates
// (distance 0) get no transfer to each other.
func attachTransfers(inputs []network.StopInput, raw []models.GTFSStop, stopIDs map[string]int, thresholdMeters float64) {
	byIndex := make(map[int]*network.StopInput, len(inputs))
	for i := range inputs {
		byIndex[inputs[i].ID] = &inputs[i]
	}

	const walkSpeedMetersPerSecond = 1.4

	for i := 0; i < len(raw); i++ {
		for j := i + 1; j < len(raw); j++ {
			dist := haversineDistance(raw[i].Lat, raw[i].Lon, raw[j].Lat, raw[j].Lon)
			if dist <= 0 || dist > thresholdMeters {
				continue
			}
			walkSeconds := int(dist / walkSpeedMetersPerSecond)
			idI, okI := stopIDs[raw[i].StopID]
			idJ, okJ := stopIDs[raw[j].StopID]
			if !okI || !okJ {
				continue
			}
			if a, ok := byIndex[idI]; ok {
				a.Transfers = append(a.Transfers, network.Transfer{TargetStopID: idJ, WalkSeconds: walkSeconds})
			}
			if b, ok := byIndex[idJ]; ok {
				b.Transfers = append(b.Transfers, network.Transfer{TargetStopID: idI, WalkSeconds: walkSeconds})
			}
		}
	}
}
