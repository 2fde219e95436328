package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/db"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/graph"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/pipeline"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/runledger"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

func main() {
	// Command-line flags
	date := flag.String("date", "", "Run date as YYYY-MM-DD (default: today, UTC)")
	envFile := flag.String("env-file", "", "Path to a dotenv file (default: ./.env when present)")

	flag.Parse()

	runDate := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse(models.DateLayout, *date)
		if err != nil {
			fmt.Printf("Usage: pipeline [--date=YYYY-MM-DD] [--env-file=<path>]\n")
			flag.PrintDefaults()
			os.Exit(1)
		}
		runDate = parsed
	}

	// The upstream API serves current data only; extracting under any other
	// date would stamp batches outside that date's partition.
	day := runDate.Format(models.DateLayout)
	if today := time.Now().UTC().Format(models.DateLayout); day != today {
		log.Fatalf("Extraction runs only for the current date %s (got %s); use the transform command to re-normalize a past date", today, day)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	log.Println("Step 1/4: Connecting to warehouse...")
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := warehouse.NewPostgres(pool)

	log.Println("Step 2/4: Ensuring warehouse tables...")
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Step 3/4: Connecting to run ledger...")
	ledger := runledger.New(cfg.Redis)
	if err := ledger.HealthCheck(ctx); err != nil {
		log.Printf("Warning: run ledger unreachable, continuing without run tracking: %v", err)
		ledger.Close()
		ledger = nil
	} else {
		defer ledger.Close()
	}

	p := pipeline.New(cfg, transit.NewClient(cfg.Transit), store, ledger)

	log.Printf("Step 4/4: Running pipeline for %s...", day)
	report, err := p.Run(ctx, runDate)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			log.Fatalf("A run for %s is already in progress", day)
		}
		logNodeFailures(report)
		log.Fatalf("Run failed: %v", err)
	}

	log.Println("Pipeline run completed successfully!")
}

func logNodeFailures(report *graph.RunReport) {
	if report == nil {
		return
	}
	for _, node := range report.Nodes {
		switch node.Status {
		case graph.StatusFailed:
			log.Printf("  %s failed after %d attempts: %v", node.Name, node.Attempts, node.Err)
		case graph.StatusSkipped:
			log.Printf("  %s skipped", node.Name)
		}
	}
}
