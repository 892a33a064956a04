package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/transitcore/raptorcore/internal/network"
	"github.com/transitcore/raptorcore/internal/routing"
	"github.com/transitcore/raptorcore/internal/tcodec"
)

func main() {
	stopsPath := flag.String("stops", "data/stops.bin", "Path to the stops binary artifact")
	routesPath := flag.String("routes", "data/routes.bin", "Path to the routes binary artifact")
	fromID := flag.Int("from", 0, "Origin stop id for a sample query (0 skips the sample query)")
	toID := flag.Int("to", 0, "Destination stop id for a sample query")
	depart := flag.String("depart", "08:00:00", "Departure time (HH:MM:SS) for the sample query")

	flag.Parse()

	log.Println("Loading network artifacts...")
	stops, err := tcodec.ReadStops(*stopsPath)
	if err != nil {
		log.Fatalf("failed to read stops: %v", err)
	}
	routes, err := tcodec.ReadRoutes(*routesPath)
	if err != nil {
		log.Fatalf("failed to read routes: %v", err)
	}

	net := network.Build(stops, routes)

	log.Printf("Loaded network: %d stops, %d routes", net.StopCount(), net.RouteCount())
	log.Printf("  average trips per route: %.1f", averageTrips(net))

	if err := sanityCheckSchedules(net); err != nil {
		log.Fatalf("schedule sanity check failed: %v", err)
	}
	log.Println("Schedules verified sorted by first-stop departure")

	if *fromID == 0 || *toID == 0 {
		log.Println("No --from/--to given, skipping sample query")
		return
	}

	departSecs, err := parseClock(*depart)
	if err != nil {
		log.Fatalf("invalid --depart: %v", err)
	}

	f := routing.NewFacade(staticPeriods{net: net}, routing.DefaultMaxRounds)
	start := time.Now()
	journeys, err := f.ForwardQuery(*fromID, *toID, departSecs)
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	log.Printf("Found %d journey option(s) in %s", len(journeys), elapsed)
	for _, j := range journeys {
		fmt.Println(routing.FormatJourney(j, net))
	}
}

func averageTrips(net *network.Network) float64 {
	if net.RouteCount() == 0 {
		return 0
	}
	total := 0
	for i := 0; i < net.RouteCount(); i++ {
		total += net.Route(i).Trips
	}
	return float64(total) / float64(net.RouteCount())
}

// sanityCheckSchedules confirms every route's trips are sorted by
// first-stop departure, the invariant earliestTrip's binary search relies on.
func sanityCheckSchedules(net *network.Network) error {
	for i := 0; i < net.RouteCount(); i++ {
		route := net.Route(i)
		prev := int32(-1)
		for t := 0; t < route.Trips; t++ {
			d := route.At(t, 0)
			if d < prev {
				return fmt.Errorf("route %d (%s): trip %d departs before trip %d", route.ID, route.Name, t, t-1)
			}
			prev = d
		}
	}
	return nil
}

func parseClock(s string) (int, error) {
	var h, m, sec int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if err != nil || n != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}
	return h*3600 + m*60 + sec, nil
}

// staticPeriods adapts a single already-built network to the
// routing.PeriodNetwork interface, for one-off command-line queries that
// never switch schedules.
type staticPeriods struct {
	net *network.Network
}

func (s staticPeriods) Active() *network.Network { return s.net }
func (s staticPeriods) ActiveID() string         { return "default" }
func (s staticPeriods) SetActive(id string) error {
	if id != "default" {
		return fmt.Errorf("unknown period %q", id)
	}
	return nil
}
func (s staticPeriods) Periods() []string { return []string{"default"} }
