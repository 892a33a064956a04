package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// RouteScheduleTrip is one trip row in a route's timetable.
type RouteScheduleTrip struct {
	TripIndex int   `json:"trip_index"`
	Times     []int `json:"times"`
}

// RouteSchedule handles GET /v2/routes/:id/schedule
func RouteSchedule(c *fiber.Ctx) error {
	net, err := networkFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	routeID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "route id is required"})
	}

	route, _, ok := net.RouteByID(routeID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "not_found", "message": "route not found"})
	}

	stops := make([]StopResult, 0, len(route.StopIndices))
	for _, si := range route.StopIndices {
		if si < 0 {
			continue
		}
		s := net.Stop(int(si))
		stops = append(stops, StopResult{ID: s.ID, Name: s.Name, Lat: s.Lat, Lon: s.Lon})
	}

	numStops := len(route.StopIndices)
	trips := make([]RouteScheduleTrip, route.Trips)
	for t := 0; t < route.Trips; t++ {
		times := make([]int, numStops)
		for s := 0; s < numStops; s++ {
			times[s] = int(route.At(t, s))
		}
		trips[t] = RouteScheduleTrip{TripIndex: t, Times: times}
	}

	return c.JSON(fiber.Map{
		"route": fiber.Map{
			"id":   route.ID,
			"name": route.Name,
		},
		"stops": stops,
		"trips": trips,
		"total": len(trips),
	})
}
