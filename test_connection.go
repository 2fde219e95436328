package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/db"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/runledger"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v\n", err)
	}

	ctx := context.Background()

	// Warehouse
	fmt.Println("🔗 Testing warehouse connection...")
	fmt.Printf("   Host: %s:%d\n", cfg.Database.Host, cfg.Database.Port)
	fmt.Printf("   User: %s\n", cfg.Database.User)
	fmt.Printf("   Database: %s\n\n", cfg.Database.Name)

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v\n", err)
	}
	defer pool.Close()

	fmt.Println("✅ Connection successful!")

	var pgVersion string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&pgVersion); err != nil {
		log.Printf("⚠️  Could not get PostgreSQL version: %v\n", err)
	} else {
		fmt.Printf("📊 PostgreSQL Version:\n   %s\n\n", pgVersion)
	}

	// Check existing tables
	fmt.Println("📋 Checking existing tables...")
	rows, err := pool.Query(ctx, `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		ORDER BY tablename
	`)
	if err != nil {
		log.Printf("⚠️  Could not list tables: %v\n", err)
	} else {
		defer rows.Close()
		tableCount := 0
		for rows.Next() {
			var tablename string
			if err := rows.Scan(&tablename); err != nil {
				continue
			}
			fmt.Printf("   - %s\n", tablename)
			tableCount++
		}
		if tableCount == 0 {
			fmt.Println("   (no tables found - run the pipeline once to create them)")
		}
		fmt.Printf("\n   Total: %d tables\n", tableCount)
	}

	// Run ledger
	fmt.Println("\n🔗 Testing run ledger connection...")
	fmt.Printf("   Host: %s:%d\n", cfg.Redis.Host, cfg.Redis.Port)

	ledger := runledger.New(cfg.Redis)
	defer ledger.Close()
	if err := ledger.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Failed to ping Redis: %v\n", err)
	}
	fmt.Println("✅ Run ledger reachable!")

	// Winnipeg Transit API
	fmt.Println("\n🔗 Testing Winnipeg Transit API...")
	fmt.Printf("   Base URL: %s\n", cfg.Transit.BaseURL)

	apiCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	routes, err := transit.NewClient(cfg.Transit).Routes(apiCtx)
	if err != nil {
		log.Fatalf("❌ Failed to fetch routes: %v\n", err)
	}
	fmt.Printf("✅ API reachable, %d routes in the catalog\n", len(routes))

	fmt.Println("\n✅ Connection test completed successfully!")
}
