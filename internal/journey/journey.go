// Package journey holds the caller-facing journey/leg types the routing
// facade reconstructs from a completed round-based search, plus the
// progress-along-a-leg helper used by clients tracking a vehicle in transit.
package journey

// Leg is one segment of a journey: either a transit ride (IsTransfer=false,
// RouteName set) or a walking transfer (IsTransfer=true, RouteName empty).
// A single tagged struct with a discriminant, not a type hierarchy.
type Leg struct {
	FromStopIndex     int
	ToStopIndex       int
	Departure         int
	Arrival           int
	IsTransfer        bool
	RouteName         string
	Direction         string
	IntermediateStops []StopTime
}

// StopTime is one intermediate stop a leg passes through without boarding
// or alighting there.
type StopTime struct {
	StopIndex int
	Time      int
}

// Journey is a reconstructed, non-dominated itinerary from one origin to one
// destination stop index.
type Journey struct {
	DestinationIndex int
	Rounds           int
	Arrival          int
	Legs             []Leg
}
