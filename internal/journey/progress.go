package journey

import "github.com/transitcore/raptorcore/internal/network"

// Position is a point on the earth's surface, used only for progress
// estimation display — never fed back into routing.
type Position struct {
	Lat float64
	Lon float64
}

// EstimateProgress locates which leg of j is in effect at atSeconds and how
// far through it the vehicle should be, by linear interpolation between the
// leg's departure and arrival times (refined against any intermediate stop
// times the leg carries). ok is false if atSeconds falls outside every
// leg's [Departure, Arrival] span, which includes waiting between legs.
func EstimateProgress(j Journey, atSeconds int) (legIndex int, fracComplete float64, ok bool) {
	for i, leg := range j.Legs {
		if atSeconds < leg.Departure || atSeconds > leg.Arrival {
			continue
		}
		return i, fractionWithinLeg(leg, atSeconds), true
	}
	return -1, 0, false
}

func fractionWithinLeg(leg Leg, atSeconds int) float64 {
	span := leg.Arrival - leg.Departure
	if span <= 0 {
		return 1
	}

	segStart, segEnd := leg.Departure, leg.Arrival
	for _, st := range leg.IntermediateStops {
		if st.Time <= atSeconds {
			segStart = st.Time
		}
		if st.Time >= atSeconds && st.Time < segEnd {
			segEnd = st.Time
		}
	}
	if segEnd <= segStart {
		return clampFraction(float64(atSeconds-leg.Departure) / float64(span))
	}
	return clampFraction(float64(atSeconds-segStart) / float64(segEnd-segStart))
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// EstimatePosition resolves a lat/lon for j at atSeconds by finding the
// active leg via EstimateProgress and linearly interpolating between its
// endpoint stops' coordinates in net.
func EstimatePosition(net *network.Network, j Journey, atSeconds int) (Position, bool) {
	legIdx, frac, ok := EstimateProgress(j, atSeconds)
	if !ok {
		return Position{}, false
	}
	leg := j.Legs[legIdx]
	from := net.Stop(leg.FromStopIndex)
	to := net.Stop(leg.ToStopIndex)
	return Position{
		Lat: from.Lat + (to.Lat-from.Lat)*frac,
		Lon: from.Lon + (to.Lon-from.Lon)*frac,
	}, true
}
