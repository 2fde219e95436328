package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/extract"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/graph"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/loader"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/runledger"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/staging"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transform"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

// ErrRunInProgress means another runner holds the lock for the run date.
var ErrRunInProgress = errors.New("a run for this date is already in progress")

// A re-run that dies holding the lock frees it after this long.
const runLockTTL = 4 * time.Hour

// Pipeline owns the daily extract, stage, load, and transform flow for one
// warehouse. A nil ledger disables run tracking and locking.
type Pipeline struct {
	cfg    *config.Config
	api    transit.API
	store  warehouse.Store
	ledger *runledger.Ledger
}

func New(cfg *config.Config, api transit.API, store warehouse.Store, ledger *runledger.Ledger) *Pipeline {
	return &Pipeline{cfg: cfg, api: api, store: store, ledger: ledger}
}

// NodeNames lists every node of the daily graph in declaration order.
func NodeNames() []string {
	return []string{
		"extract_routes",
		"load_routes",
		"extract_destinations",
		"load_destinations",
		"extract_stops",
		"load_stops",
		"extract_stop_features",
		"load_stop_features",
		"extract_stop_schedules",
		"load_stop_schedules",
		"transform_staging",
	}
}

// Run executes the full daily graph for the run date and returns the
// execution report. A failed run returns an error naming the node that
// caused it; the report carries the per-node detail either way.
func (p *Pipeline) Run(ctx context.Context, runDate time.Time) (*graph.RunReport, error) {
	day := runDate.Format(models.DateLayout)

	if p.ledger != nil {
		ok, err := p.ledger.AcquireRunLock(ctx, runDate, runLockTTL)
		switch {
		case err != nil:
			log.Printf("Warning: run lock unavailable, continuing without it: %v", err)
		case !ok:
			return nil, ErrRunInProgress
		default:
			defer p.ledger.ReleaseRunLock(context.WithoutCancel(ctx), runDate)
		}
	}

	g, err := p.buildGraph(runDate)
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}

	exec := &graph.Executor{
		Retries: p.cfg.Retry.Count,
		Backoff: p.cfg.Retry.Backoff,
	}
	if p.ledger != nil {
		p.ledger.StartRun(ctx, runDate)
		exec.Observer = p.ledger.Observer(runDate)
	}

	log.Printf("Starting pipeline run for %s", day)
	report := exec.Execute(ctx, g)
	if p.ledger != nil {
		p.ledger.FinishRun(context.WithoutCancel(ctx), runDate, report)
	}

	if !report.Succeeded() {
		return report, fmt.Errorf("run for %s failed at node %s: %w", day, report.Failed, report.Err)
	}
	log.Printf("Pipeline run for %s completed in %v", day, report.Finished.Sub(report.Started))
	return report, nil
}

// buildGraph wires the daily nodes. The variant and stop number lists are
// carried between extractors on typed hand-off edges, so the data flow
// matches the declared dependencies exactly.
func (p *Pipeline) buildGraph(runDate time.Time) (*graph.Graph, error) {
	variants := graph.NewHandoff[[]string]()
	stopNumbers := graph.NewHandoff[[]string]()

	routesEx := extract.NewRoutesExtractor(p.api)
	destinationsEx := extract.NewDestinationsExtractor(p.api, p.cfg.Extract)
	stopsEx := extract.NewStopsExtractor(p.api, p.cfg.Extract)
	featuresEx := extract.NewStopFeaturesExtractor(p.api, p.cfg.Extract)
	schedulesEx := extract.NewStopSchedulesExtractor(p.api, p.cfg.Extract)

	writer := staging.NewWriter(p.cfg.StagingDir)
	load := loader.New(staging.NewReader(p.cfg.StagingDir), p.store)
	runner := transform.NewRunner(p.store)

	stage := func(ds *models.Dataset) error {
		path, err := writer.Write(ds, runDate)
		if err != nil {
			return err
		}
		log.Printf("Staged %d rows to %s", ds.Len(), path)
		return nil
	}
	loadNode := func(spec models.TableSpec) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			_, err := load.Load(ctx, spec, runDate)
			return err
		}
	}

	return graph.New([]graph.Node{
		{
			Name: "extract_routes",
			Run: func(ctx context.Context) error {
				ds, vars, _, err := routesEx.Extract(ctx)
				if err != nil {
					return err
				}
				if err := stage(ds); err != nil {
					return err
				}
				variants.Set(vars)
				return nil
			},
		},
		{
			Name: "load_routes",
			Deps: []string{"extract_routes"},
			Run:  loadNode(models.RawRoutes),
		},
		{
			Name: "extract_destinations",
			Deps: []string{"extract_routes"},
			Run: func(ctx context.Context) error {
				vars, err := variants.Get()
				if err != nil {
					return err
				}
				ds, _, err := destinationsEx.Extract(ctx, vars)
				if err != nil {
					return err
				}
				return stage(ds)
			},
		},
		{
			Name: "load_destinations",
			Deps: []string{"extract_destinations"},
			Run:  loadNode(models.RawDestinations),
		},
		{
			Name: "extract_stops",
			Deps: []string{"extract_routes"},
			Run: func(ctx context.Context) error {
				vars, err := variants.Get()
				if err != nil {
					return err
				}
				ds, numbers, _, err := stopsEx.Extract(ctx, vars)
				if err != nil {
					return err
				}
				if err := stage(ds); err != nil {
					return err
				}
				stopNumbers.Set(numbers)
				return nil
			},
		},
		{
			Name: "load_stops",
			Deps: []string{"extract_stops"},
			Run:  loadNode(models.RawStops),
		},
		{
			Name: "extract_stop_features",
			Deps: []string{"extract_stops"},
			Run: func(ctx context.Context) error {
				numbers, err := stopNumbers.Get()
				if err != nil {
					return err
				}
				ds, _, err := featuresEx.Extract(ctx, numbers)
				if err != nil {
					return err
				}
				return stage(ds)
			},
		},
		{
			Name: "load_stop_features",
			Deps: []string{"extract_stop_features"},
			Run:  loadNode(models.RawStopFeatures),
		},
		{
			Name: "extract_stop_schedules",
			Deps: []string{"extract_stops"},
			Run: func(ctx context.Context) error {
				numbers, err := stopNumbers.Get()
				if err != nil {
					return err
				}
				ds, _, err := schedulesEx.Extract(ctx, numbers)
				if err != nil {
					return err
				}
				return stage(ds)
			},
		},
		{
			Name: "load_stop_schedules",
			Deps: []string{"extract_stop_schedules"},
			Run:  loadNode(models.RawStopSchedules),
		},
		{
			Name: "transform_staging",
			Deps: []string{
				"load_routes", "load_destinations", "load_stops",
				"load_stop_features", "load_stop_schedules",
			},
			Run: func(ctx context.Context) error {
				_, err := runner.Run(ctx, runDate)
				return err
			},
		},
	})
}
