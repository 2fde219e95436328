package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/db"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transform"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

func main() {
	date := flag.String("date", "", "Run date as YYYY-MM-DD (default: today, UTC)")
	envFile := flag.String("env-file", "", "Path to a dotenv file (default: ./.env when present)")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt")

	flag.Parse()

	log.Println("🔄 Winnipeg Transit ELT - Transform Rebuild Tool")
	log.Println("================================================")

	runDate := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse(models.DateLayout, *date)
		if err != nil {
			log.Fatalf("❌ Invalid --date %q, expected YYYY-MM-DD", *date)
		}
		runDate = parsed
	}
	day := runDate.Format(models.DateLayout)

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	log.Println("📡 Connecting to database...")
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer pool.Close()

	log.Println("✅ Database connected")

	// Check data availability
	log.Printf("📊 Raw rows for %s:", day)
	total := 0
	for _, spec := range models.RawTables {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", spec.Name, spec.PartitionExpr)
		if err := pool.QueryRow(ctx, query, day).Scan(&count); err != nil {
			log.Fatalf("❌ Failed to count %s: %v", spec.Name, err)
		}
		log.Printf("   %s: %d", spec.Name, count)
		total += count
	}

	if total == 0 {
		log.Fatalf("❌ No raw data for %s. Run the pipeline first!", day)
	}

	// Confirm rebuild
	if !*yes {
		fmt.Println()
		fmt.Printf("⚠️  This will REPLACE the %s partition of every stg_ table!\n", day)
		fmt.Print("Continue? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)

		if confirm != "yes" && confirm != "y" {
			log.Println("❌ Rebuild cancelled")
			os.Exit(0)
		}
	}

	fmt.Println()
	log.Println("🔄 Rebuilding normalized tables...")
	startTime := time.Now()

	store := warehouse.NewPostgres(pool)
	results, err := transform.NewRunner(store).Run(ctx, runDate)
	if err != nil {
		log.Fatalf("❌ Failed to rebuild: %v", err)
	}

	duration := time.Since(startTime)

	fmt.Println()
	log.Println("✅ Transform rebuild completed!")
	log.Printf("⏱️  Duration: %v", duration)
	log.Printf("📊 Results:")
	violations := 0
	for _, res := range results {
		log.Printf("   %s: %d rows", res.Rule, res.Rows)
		violations += len(res.Violations)
	}

	if violations > 0 {
		log.Printf("⚠️  %d expectation violations, see warnings above", violations)
	} else {
		log.Println("🚀 All expectations passed!")
	}
}
