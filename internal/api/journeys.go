package api

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/transitcore/raptorcore/internal/cache"
	"github.com/transitcore/raptorcore/internal/journey"
	"github.com/transitcore/raptorcore/internal/routing"
)

const journeyCacheTTL = 60 * time.Second

// JourneysResponse is the response body for both the forward and
// arrive-by journey endpoints.
type JourneysResponse struct {
	Origin      int               `json:"origin_stop_id"`
	Destination int               `json:"destination_stop_id"`
	Period      string            `json:"period"`
	Journeys    []journey.Journey `json:"journeys"`
}

// ForwardQuery handles GET /v2/journeys?from=<stopId>&to=<stopId>&depart=HH:MM:SS
func ForwardQuery(c *fiber.Ctx) error {
	facade, err := facadeFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	from, to, ok := parseStopPair(c)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "from and to stop ids are required"})
	}

	depart, err := parseClockQuery(c, "depart")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	period := facade.CurrentPeriod()
	key := cache.RouteKey(period, from, to, depart)

	ctx := c.Context()
	if cached, err := cache.GetRoute(ctx, key); err == nil && cached != nil {
		return c.JSON(JourneysResponse{Origin: from, Destination: to, Period: period, Journeys: cached})
	}

	journeys, err := facade.ForwardQuery(from, to, depart)
	if err != nil {
		return c.Status(200).JSON(JourneysResponse{Origin: from, Destination: to, Period: period, Journeys: []journey.Journey{}})
	}

	if err := cache.SetRoute(ctx, key, journeys, journeyCacheTTL); err != nil {
		log.Printf("journeys: cache set failed for %s: %v", key, err)
	}

	return c.JSON(JourneysResponse{Origin: from, Destination: to, Period: period, Journeys: journeys})
}

// ArriveByQuery handles GET /v2/journeys/arrive-by?from=<stopId>&to=<stopId>&by=HH:MM:SS&window=<minutes>
func ArriveByQuery(c *fiber.Ctx) error {
	facade, err := facadeFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	from, to, ok := parseStopPair(c)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "from and to stop ids are required"})
	}

	arriveBy, err := parseClockQuery(c, "by")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	windowMinutes := routing.DefaultArriveByWindowMinutes
	if w := c.Query("window"); w != "" {
		parsed, err := strconv.Atoi(w)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "window must be an integer number of minutes"})
		}
		windowMinutes = parsed
	}

	journeys, err := facade.ArriveByQuery(from, to, arriveBy, windowMinutes)
	if err != nil {
		return c.Status(200).JSON(JourneysResponse{Origin: from, Destination: to, Period: facade.CurrentPeriod(), Journeys: []journey.Journey{}})
	}

	return c.JSON(JourneysResponse{Origin: from, Destination: to, Period: facade.CurrentPeriod(), Journeys: journeys})
}

func parseStopPair(c *fiber.Ctx) (from, to int, ok bool) {
	f, errF := strconv.Atoi(c.Query("from"))
	t, errT := strconv.Atoi(c.Query("to"))
	if errF != nil || errT != nil {
		return 0, 0, false
	}
	return f, t, true
}

func parseClockQuery(c *fiber.Ctx, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		now := time.Now().UTC()
		return now.Hour()*3600 + now.Minute()*60 + now.Second(), nil
	}
	return parseClock(v)
}

// parseClock parses "HH:MM" or "HH:MM:SS" to seconds since midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected HH:MM or HH:MM:SS")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec := 0
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, err
		}
	}
	return h*3600 + m*60 + sec, nil
}
