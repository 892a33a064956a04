package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/transitcore/raptorcore/internal/cache"
	"github.com/transitcore/raptorcore/internal/db"
)

// Health handles GET /health
func Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		dbStatus = err.Error()
	}

	redisStatus := "ok"
	if err := cache.HealthCheck(ctx); err != nil {
		redisStatus = err.Error()
	}

	periodStatus := "ok"
	net, err := networkFrom(c)
	if err != nil {
		periodStatus = err.Error()
	}

	healthy := dbStatus == "ok" && redisStatus == "ok" && periodStatus == "ok"
	status := 200
	if !healthy {
		status = 503
	}

	body := fiber.Map{
		"database": dbStatus,
		"redis":    redisStatus,
		"period":   periodStatus,
	}
	if net != nil {
		body["stops"] = net.StopCount()
		body["routes"] = net.RouteCount()
	}

	return c.Status(status).JSON(body)
}
