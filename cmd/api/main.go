package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/api"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/db"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/pipeline"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/runledger"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

func main() {
	envFile := flag.String("env-file", "", "Path to a dotenv file (default: ./.env when present)")
	flag.Parse()

	log.Println("Starting Winnipeg Transit ELT API server...")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize database connection
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("✓ Database connection established")

	store := warehouse.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create warehouse tables: %v", err)
	}
	log.Println("✓ Warehouse tables ensured")

	// Initialize run ledger connection
	ledger := runledger.New(cfg.Redis)
	if err := ledger.HealthCheck(ctx); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer ledger.Close()
	log.Println("✓ Run ledger connection established")

	p := pipeline.New(cfg, transit.NewClient(cfg.Transit), store, ledger)
	handlers := api.NewHandlers(pool, ledger, store, p)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Winnipeg Transit ELT API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
	}))

	// Routes
	handlers.RegisterRoutes(app, cfg.API.AuthKey)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.API.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Trigger a run: POST http://localhost%s/v1/runs", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

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

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
