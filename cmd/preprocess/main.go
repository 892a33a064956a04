package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transitcore/raptorcore/internal/db"
	"github.com/transitcore/raptorcore/internal/gtfs"
	"github.com/transitcore/raptorcore/internal/tcodec"
)

func main() {
	agencyID := flag.String("agency-id", "", "Agency ID for this GTFS feed (required)")
	gtfsPath := flag.String("gtfs", "", "Path to GTFS ZIP file (required)")
	serviceDate := flag.String("service-date", "", "Service date to resolve active trips for, YYYY-MM-DD (default: today)")
	dedupeThreshold := flag.Float64("dedupe-threshold", 30.0, "Stop deduplication threshold in meters")
	transferThreshold := flag.Float64("transfer-threshold", 250.0, "Walking transfer distance threshold in meters")
	stopsOut := flag.String("stops-out", "data/stops.bin", "Output path for the stops binary artifact")
	routesOut := flag.String("routes-out", "data/routes.bin", "Output path for the routes binary artifact")

	flag.Parse()

	if *agencyID == "" || *gtfsPath == "" {
		fmt.Println("Usage: preprocess --agency-id=<id> --gtfs=<path.zip> [--service-date=2026-08-06] [--stops-out=...] [--routes-out=...]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*gtfsPath); os.IsNotExist(err) {
		log.Fatalf("GTFS file not found: %s", *gtfsPath)
	}

	date := time.Now()
	if *serviceDate != "" {
		parsed, err := time.Parse("2006-01-02", *serviceDate)
		if err != nil {
			log.Fatalf("invalid --service-date %q: %v", *serviceDate, err)
		}
		date = parsed
	}

	log.Println("Starting GTFS preprocessing...")
	log.Printf("Agency ID: %s", *agencyID)
	log.Printf("GTFS file: %s", *gtfsPath)
	log.Printf("Service date: %s", date.Format("2006-01-02"))

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to admin database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	importLogID, err := createImportLog(ctx, pool, *agencyID)
	if err != nil {
		log.Fatalf("Failed to create import log: %v", err)
	}

	stopCount, routeCount, err := run(*gtfsPath, date, *dedupeThreshold, *transferThreshold, *stopsOut, *routesOut)
	if err != nil {
		updateImportLog(ctx, pool, importLogID, "failed", 0, 0, err.Error())
		log.Fatalf("Preprocessing failed: %v", err)
	}

	if err := updateImportLog(ctx, pool, importLogID, "success", stopCount, routeCount, ""); err != nil {
		log.Printf("Warning: failed to update import log: %v", err)
	}

	log.Println("Preprocessing completed successfully!")
}

func run(gtfsPath string, date time.Time, dedupeThreshold, transferThreshold float64, stopsOut, routesOut string) (int, int, error) {
	log.Println("Step 1/4: Parsing GTFS feed...")
	feed, err := gtfs.ParseGTFSZip(gtfsPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse GTFS: %w", err)
	}

	log.Println("Step 2/4: Validating and deduplicating stops...")
	feed.Stops = gtfs.ValidateAndCleanStops(feed.Stops)
	var stopMapping map[string]string
	feed.Stops, stopMapping = gtfs.DeduplicateStops(feed.Stops, dedupeThreshold)
	for i := range feed.StopTimes {
		if newID, ok := stopMapping[feed.StopTimes[i].StopID]; ok {
			feed.StopTimes[i].StopID = newID
		}
	}

	log.Println("Step 3/4: Building flat network model...")
	stops, routes, err := gtfs.Build(feed, gtfs.BuildOptions{
		ServiceDate:             date,
		TransferThresholdMeters: transferThreshold,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build network: %w", err)
	}

	log.Println("Step 4/4: Writing binary artifacts...")
	if err := os.MkdirAll(filepath.Dir(stopsOut), 0o755); err != nil {
		return 0, 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := tcodec.WriteStops(stopsOut, stops); err != nil {
		return 0, 0, fmt.Errorf("failed to write stops: %w", err)
	}
	if err := tcodec.WriteRoutes(routesOut, routes); err != nil {
		return 0, 0, fmt.Errorf("failed to write routes: %w", err)
	}

	log.Printf("Wrote %d stops to %s", len(stops), stopsOut)
	log.Printf("Wrote %d route variants to %s", len(routes), routesOut)

	return len(stops), len(routes), nil
}

func createImportLog(ctx context.Context, pool *pgxpool.Pool, agencyID string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO import_log (agency_id, status)
		VALUES ($1, 'running')
		RETURNING id
	`, agencyID).Scan(&id)

	return id, err
}

func updateImportLog(ctx context.Context, pool *pgxpool.Pool, id int64, status string, stops, routes int, errMsg string) error {
	message := errMsg
	if status == "success" {
		message = fmt.Sprintf("Preprocessed %d stops, %d route variants", stops, routes)
	}

	_, err := pool.Exec(ctx, `
		UPDATE import_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3
		WHERE id = $1
	`, id, status, message)

	return err
}
