//go:build !with_auth

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/transitcore/raptorcore/internal/api"
	"github.com/transitcore/raptorcore/internal/cache"
	"github.com/transitcore/raptorcore/internal/db"
	"github.com/transitcore/raptorcore/internal/period"
	"github.com/transitcore/raptorcore/internal/routing"
)

func main() {
	log.Println("Starting transit routing API server...")

	if _, err := db.GetDB(); err != nil {
		log.Fatalf("Failed to connect to admin database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Admin database connection established")

	if _, err := cache.GetClient(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	registry := period.NewRegistry()
	if err := loadPeriods(registry); err != nil {
		log.Fatalf("Failed to load schedule periods: %v", err)
	}
	log.Printf("✓ Loaded %d period(s), active: %s", len(registry.Periods()), registry.ActiveID())

	facade := routing.NewFacade(registry, routing.DefaultMaxRounds)

	app := fiber.New(fiber.Config{
		AppName:      "Transit Routing API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("facade", facade)
		c.Locals("registry", registry)
		return c.Next()
	})

	app.Get("/health", api.Health)
	app.Get("/v2/journeys", api.ForwardQuery)
	app.Get("/v2/journeys/arrive-by", api.ArriveByQuery)
	app.Get("/v2/stops/nearby", api.StopsNearby)
	app.Get("/v2/stops/search", api.StopsSearch)
	app.Get("/v2/stops/:id/departures", api.StopDepartures)
	app.Get("/v2/routes/:id/schedule", api.RouteSchedule)
	app.Get("/v2/periods", api.ListPeriods)
	app.Post("/v2/periods/active", api.SetActivePeriod)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Journey search: http://localhost%s/v2/journeys?from=1&to=2&depart=08:00:00", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadPeriods reads TRANSIT_PERIODS (a comma-separated list of
// id=stopsPath:routesPath entries) and loads each into registry. A single
// TRANSIT_STOPS/TRANSIT_ROUTES pair loads as the implicit "default" period
// when TRANSIT_PERIODS isn't set, for single-schedule deployments.
func loadPeriods(registry *period.Registry) error {
	if spec := os.Getenv("TRANSIT_PERIODS"); spec != "" {
		for _, entry := range splitNonEmpty(spec, ",") {
			idAndPaths := splitNonEmpty(entry, "=")
			if len(idAndPaths) != 2 {
				return fmt.Errorf("invalid TRANSIT_PERIODS entry %q", entry)
			}
			paths := splitNonEmpty(idAndPaths[1], ":")
			if len(paths) != 2 {
				return fmt.Errorf("invalid TRANSIT_PERIODS entry %q", entry)
			}
			if err := registry.Load(idAndPaths[0], paths[0], paths[1]); err != nil {
				return err
			}
		}
		return nil
	}

	stops := getEnv("TRANSIT_STOPS", "data/stops.bin")
	routes := getEnv("TRANSIT_ROUTES", "data/routes.bin")
	return registry.Load("default", stops, routes)
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
