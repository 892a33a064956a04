package routing

import (
	"fmt"
	"strings"

	"github.com/transitcore/raptorcore/internal/journey"
	"github.com/transitcore/raptorcore/internal/network"
)

// FormatJourney renders j as a human-readable itinerary, resolving stop
// indices against net for display names. Intended for CLI/debug output, not
// the JSON API surface.
func FormatJourney(j journey.Journey, net *network.Network) string {
	var b strings.Builder
	transfers := j.Rounds - 1
	if transfers < 0 {
		transfers = 0
	}
	fmt.Fprintf(&b, "journey: %d transfer(s), arrive %s\n", transfers, formatClock(j.Arrival))
	if j.Rounds == 0 && len(j.Legs) == 0 {
		fmt.Fprintf(&b, "  already at destination\n")
		return b.String()
	}
	for _, leg := range j.Legs {
		from := net.Stop(leg.FromStopIndex).Name
		to := net.Stop(leg.ToStopIndex).Name
		if leg.IsTransfer {
			fmt.Fprintf(&b, "  walk    %-24s -> %-24s arrive %s\n", from, to, formatClock(leg.Arrival))
			continue
		}
		fmt.Fprintf(&b, "  ride %-8s %-24s -> %-24s depart %s arrive %s\n",
			leg.RouteName, from, to, formatClock(leg.Departure), formatClock(leg.Arrival))
		for _, st := range leg.IntermediateStops {
			fmt.Fprintf(&b, "        via %-24s %s\n", net.Stop(st.StopIndex).Name, formatClock(st.Time))
		}
	}
	return b.String()
}

func formatClock(seconds int) string {
	if seconds < 0 {
		return "--:--:--"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
