package main

import (
	"context"
	"fmt"
	"log"

	"github.com/transitcore/raptorcore/internal/db"
)

func main() {
	fmt.Println("Testing admin database connection...")

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := db.HealthCheck(ctx); err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	fmt.Println("Connection successful")

	var pgVersion string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&pgVersion); err != nil {
		log.Printf("Warning: could not get PostgreSQL version: %v", err)
	} else {
		fmt.Printf("PostgreSQL version: %s\n", pgVersion)
	}

	fmt.Println("Checking admin tables...")
	rows, err := pool.Query(ctx, `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		ORDER BY tablename
	`)
	if err != nil {
		log.Printf("Warning: could not list tables: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var tablename string
		if err := rows.Scan(&tablename); err != nil {
			continue
		}
		fmt.Printf("  - %s\n", tablename)
		count++
	}
	if count == 0 {
		fmt.Println("  (no tables found - migrations need to be run)")
	}
	fmt.Printf("Total: %d tables\n", count)
}
