package api

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/transitcore/raptorcore/internal/network"
)

// StopResult is a stop as returned to API clients.
type StopResult struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Distance *float64 `json:"distance_meters,omitempty"`
}

// StopsSearch handles GET /v2/stops/search?q=<substring>
func StopsSearch(c *fiber.Ctx) error {
	facade, err := facadeFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	q := c.Query("q")
	if q == "" {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "q is required"})
	}

	matches := facade.SearchStopsByName(q)
	results := make([]StopResult, 0, len(matches))
	for _, s := range matches {
		results = append(results, StopResult{ID: s.ID, Name: s.Name, Lat: s.Lat, Lon: s.Lon})
	}

	return c.JSON(fiber.Map{"stops": results, "total": len(results)})
}

// StopsNearby handles GET /v2/stops/nearby?lat=&lon=&radius=
func StopsNearby(c *fiber.Ctx) error {
	net, err := networkFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "lat and lon are required"})
	}
	radius, _ := strconv.ParseFloat(c.Query("radius", "500"), 64)
	if radius <= 0 {
		radius = 500
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	type ranked struct {
		stop network.Stop
		dist float64
	}
	var nearby []ranked
	for i := 0; i < net.StopCount(); i++ {
		s := net.Stop(i)
		dist := haversineDistance(lat, lon, s.Lat, s.Lon)
		if dist <= radius {
			nearby = append(nearby, ranked{stop: s, dist: dist})
		}
	}
	sort.Slice(nearby, func(a, b int) bool { return nearby[a].dist < nearby[b].dist })
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}

	results := make([]StopResult, len(nearby))
	for i, r := range nearby {
		d := r.dist
		results[i] = StopResult{ID: r.stop.ID, Name: r.stop.Name, Lat: r.stop.Lat, Lon: r.stop.Lon, Distance: &d}
	}

	return c.JSON(fiber.Map{"stops": results, "total": len(results)})
}

// DepartureResult is a single upcoming departure at a stop.
type DepartureResult struct {
	RouteID       int    `json:"route_id"`
	RouteName     string `json:"route_name"`
	DepartureSecs int    `json:"departure_seconds"`
	MinutesUntil  int    `json:"minutes_until"`
}

// StopDepartures handles GET /v2/stops/:id/departures?time=HH:MM:SS&limit=
func StopDepartures(c *fiber.Ctx) error {
	net, err := networkFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	stopID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "stop id is required"})
	}
	stopIdx := net.StopIndex(stopID)
	if stopIdx < 0 {
		return c.Status(404).JSON(fiber.Map{"error": "not_found", "message": "stop not found"})
	}

	timeSecs, err := parseClockQuery(c, "time")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var departures []DepartureResult
	for _, ri := range net.RoutesByStop(stopIdx) {
		route := net.Route(int(ri))
		pos := stopPosition(route, stopIdx)
		if pos < 0 {
			continue
		}
		for t := 0; t < route.Trips; t++ {
			dep := int(route.At(t, pos))
			if dep < timeSecs {
				continue
			}
			departures = append(departures, DepartureResult{
				RouteID:       route.ID,
				RouteName:     route.Name,
				DepartureSecs: dep,
				MinutesUntil:  (dep - timeSecs) / 60,
			})
		}
	}

	sort.Slice(departures, func(a, b int) bool { return departures[a].DepartureSecs < departures[b].DepartureSecs })
	if len(departures) > limit {
		departures = departures[:limit]
	}
	if departures == nil {
		departures = []DepartureResult{}
	}

	now := time.Now().UTC()
	return c.JSON(fiber.Map{
		"stop_id":      stopID,
		"departures":   departures,
		"current_time": now.Format("15:04:05"),
		"total":        len(departures),
	})
}

func stopPosition(route *network.Route, stopIdx int) int {
	for pos, si := range route.StopIndices {
		if int(si) == stopIdx {
			return pos
		}
	}
	return -1
}

// haversineDistance calculates the distance between two points in meters.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
