package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/db"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/graph"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/middleware"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/pipeline"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/runledger"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

// Background runs triggered over HTTP are cut off after this long.
const runTimeout = 2 * time.Hour

// RunTrigger starts a pipeline run for a date.
type RunTrigger interface {
	Run(ctx context.Context, runDate time.Time) (*graph.RunReport, error)
}

// RunLedger is the slice of the run ledger the API reads.
type RunLedger interface {
	GetRun(ctx context.Context, runDate time.Time, nodes []string) (*runledger.RunState, error)
	HealthCheck(ctx context.Context) error
}

// FreshnessSource reports per-table warehouse freshness.
type FreshnessSource interface {
	Freshness(ctx context.Context) ([]warehouse.TableFreshness, error)
}

// Handlers serves the pipeline's operational surface: health, run
// triggering and inspection, and warehouse freshness.
type Handlers struct {
	checkDB   func(ctx context.Context) error
	ledger    RunLedger
	freshness FreshnessSource
	runner    RunTrigger

	// Dates with a run in flight in this process. The ledger lock still
	// guards against a second runner process.
	running sync.Map
}

func NewHandlers(pool *pgxpool.Pool, ledger *runledger.Ledger, store *warehouse.Postgres, p *pipeline.Pipeline) *Handlers {
	return &Handlers{
		checkDB:   func(ctx context.Context) error { return db.HealthCheck(ctx, pool) },
		ledger:    ledger,
		freshness: store,
		runner:    p,
	}
}

// RegisterRoutes mounts the API onto the app. The key guard protects the
// mutating endpoints only; reads stay open.
func (h *Handlers) RegisterRoutes(app *fiber.App, authKey string) {
	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Get("/runs/:date", h.GetRun)
	v1.Get("/freshness", h.Freshness)
	v1.Post("/runs", middleware.RequireKey(authKey), h.TriggerRun)
}

// Health handles the /health endpoint.
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "ok"
	dbErr := h.checkDB(ctx)
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	ledgerStatus := "ok"
	ledgerErr := h.ledger.HealthCheck(ctx)
	if ledgerErr != nil {
		ledgerStatus = ledgerErr.Error()
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if dbErr != nil || ledgerErr != nil {
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"ledger":   ledgerStatus,
		},
	})
}

type triggerRunRequest struct {
	Date string `json:"date"`
}

// TriggerRun handles POST /v1/runs. The run executes in the background and
// the response only acknowledges the start; progress lands in the run
// ledger as nodes execute.
func (h *Handlers) TriggerRun(c *fiber.Ctx) error {
	var req triggerRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	runDate := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse(models.DateLayout, req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("date must look like %s", models.DateLayout),
			})
		}
		runDate = parsed
	}
	day := runDate.Format(models.DateLayout)

	// The upstream API serves current data only, so extraction for any
	// other date cannot produce that date's partition. Re-normalizing an
	// already-loaded day is the transform command's job.
	if today := time.Now().UTC().Format(models.DateLayout); day != today {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("only the current date %s can be extracted", today),
		})
	}

	if _, inFlight := h.running.LoadOrStore(day, true); inFlight {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("a run for %s is already in progress", day),
		})
	}

	go func() {
		defer h.running.Delete(day)
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := h.runner.Run(ctx, runDate); err != nil {
			log.Printf("Run for %s failed: %v", day, err)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"date":   day,
		"status": "started",
	})
}

// GetRun handles GET /v1/runs/:date.
func (h *Handlers) GetRun(c *fiber.Ctx) error {
	runDate, err := time.Parse(models.DateLayout, c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("date must look like %s", models.DateLayout),
		})
	}

	state, err := h.ledger.GetRun(c.Context(), runDate, pipeline.NodeNames())
	if err != nil {
		log.Printf("Failed to read run state: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "run ledger unavailable",
		})
	}
	if state == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("no run recorded for %s", c.Params("date")),
		})
	}

	return c.JSON(state)
}

// Freshness handles GET /v1/freshness.
func (h *Handlers) Freshness(c *fiber.Ctx) error {
	tables, err := h.freshness.Freshness(c.Context())
	if err != nil {
		log.Printf("Failed to read freshness: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read warehouse freshness",
		})
	}

	return c.JSON(fiber.Map{"tables": tables})
}
