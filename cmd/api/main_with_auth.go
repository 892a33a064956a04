//go:build with_auth

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
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
	"github.com/transitcore/raptorcore/internal/middleware"
	"github.com/transitcore/raptorcore/internal/period"
	"github.com/transitcore/raptorcore/internal/routing"
)

func main() {
	log.Println("Starting transit routing API server...")

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to admin database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Admin database connection established")

	rdb, err := cache.GetClient()
	if err != nil {
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

	enableAuth := getEnvBool("ENABLE_AUTH", true)
	enableRateLimit := getEnvBool("ENABLE_RATE_LIMIT", true)
	enableAnalytics := getEnvBool("ENABLE_ANALYTICS", true)

	log.Printf("Configuration: Auth=%v, RateLimit=%v, Analytics=%v", enableAuth, enableRateLimit, enableAnalytics)

	app := fiber.New(fiber.Config{
		AppName:      "Transit Routing API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("db", pool)
		c.Locals("redis", rdb)
		c.Locals("facade", facade)
		c.Locals("registry", registry)
		return c.Next()
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    "Transit Routing API",
			"version": "2.0.0",
			"status":  "operational",
			"authentication": map[string]interface{}{
				"enabled": enableAuth,
				"type":    "Bearer Token (API Key)",
				"format":  "Authorization: Bearer tc_live_...",
			},
		})
	})

	app.Get("/health", api.Health)

	v2 := app.Group("/v2")

	if enableAuth {
		v2.Use(middleware.AuthMiddleware(pool))
		log.Println("✓ Authentication middleware enabled")
	}
	if enableRateLimit && enableAuth {
		v2.Use(middleware.RateLimitMiddleware(rdb))
		log.Println("✓ Rate limiting middleware enabled")
	}
	if enableAnalytics && enableAuth {
		v2.Use(middleware.AnalyticsMiddleware(pool))
		log.Println("✓ Analytics middleware enabled")
	}

	v2.Get("/journeys", api.ForwardQuery)
	v2.Get("/journeys/arrive-by", api.ArriveByQuery)
	v2.Get("/stops/nearby", api.StopsNearby)
	v2.Get("/stops/search", api.StopsSearch)
	v2.Get("/stops/:id/departures", api.StopDepartures)
	v2.Get("/routes/:id/schedule", api.RouteSchedule)
	v2.Get("/periods", api.ListPeriods)
	v2.Post("/periods/active", api.SetActivePeriod)

	if enableAuth {
		dashboard := app.Group("/dashboard")
		dashboard.Use(middleware.AuthMiddleware(pool))

		dashboard.Get("/me", api.GetPartnerInfo)
		dashboard.Get("/api-keys", api.GetAPIKeys)
		dashboard.Post("/api-keys", api.CreateAPIKey)
		dashboard.Delete("/api-keys/:id", api.RevokeAPIKey)
		dashboard.Get("/usage", api.GetUsageStats)
		dashboard.Get("/quota", api.GetQuotaUsage)

		log.Println("✓ Dashboard API endpoints registered")
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error":   "not_found",
			"message": "The requested endpoint does not exist",
			"path":    c.Path(),
		})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("\n⚠️  Received shutdown signal...")
		log.Println("Closing database connections...")
		db.Close()
		log.Println("Closing Redis connections...")
		cache.Close()
		log.Println("Shutting down server...")

		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		log.Println("✓ Server shut down gracefully")
	}()

	log.Println("═══════════════════════════════════════════════════")
	log.Printf("🚀 Transit Routing API Server Started")
	log.Printf("📍 Listening on: http://localhost%s", addr)
	log.Println("═══════════════════════════════════════════════════")
	log.Println("Available Endpoints:")
	log.Printf("  GET  /                        - API information")
	log.Printf("  GET  /health                  - Health check")
	log.Printf("  GET  /v2/journeys             - Journey planning")
	log.Printf("  GET  /v2/journeys/arrive-by   - Arrive-by journey planning")
	log.Printf("  GET  /v2/stops/nearby         - Find nearby stops")
	log.Printf("  GET  /v2/periods              - List loaded schedule periods")
	if enableAuth {
		log.Println("\nPartner Dashboard:")
		log.Printf("  GET  /dashboard/me         - Partner info")
		log.Printf("  GET  /dashboard/api-keys   - List API keys")
		log.Printf("  POST /dashboard/api-keys   - Create API key")
		log.Printf("  GET  /dashboard/usage      - Usage statistics")
		log.Printf("  GET  /dashboard/quota      - Quota status")
	}
	log.Println("═══════════════════════════════════════════════════")

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error [%s %s]: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error":   "internal_error",
		"message": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
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
