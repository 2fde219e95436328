package graph

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is a node's terminal state within one run, plus the transient
// running state reported to observers.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// NodeReport records one node's outcome.
type NodeReport struct {
	Name     string
	Status   Status
	Attempts int
	Duration time.Duration
	Err      error
}

// RunReport aggregates a full graph execution. Nodes appear in completion
// order, skipped nodes last.
type RunReport struct {
	Started  time.Time
	Finished time.Time
	Nodes    []NodeReport
	Failed   string
	Err      error
}

// Succeeded reports whether every node ran to success.
func (r *RunReport) Succeeded() bool { return r.Failed == "" }

// Observer is notified as nodes start and finish. Running notifications
// arrive from concurrent node goroutines, so implementations must be safe
// for concurrent use.
type Observer func(nr NodeReport)

// Executor runs a graph wave by wave: every node whose dependencies have
// succeeded runs concurrently with its peers. A node that fails after its
// retries leaves all transitive dependents skipped and the run failed.
type Executor struct {
	Retries  int
	Backoff  time.Duration
	Observer Observer
}

// Execute runs the graph to completion and never returns a nil report.
func (e *Executor) Execute(ctx context.Context, g *Graph) *RunReport {
	report := &RunReport{Started: time.Now()}
	state := make(map[string]Status, len(g.nodes))

	for {
		ready := g.ready(state)
		if len(ready) == 0 {
			break
		}

		wave := make([]NodeReport, len(ready))
		var wg errgroup.Group
		for i, idx := range ready {
			i := i
			node := g.nodes[idx]
			wg.Go(func() error {
				e.observe(NodeReport{Name: node.Name, Status: StatusRunning})
				wave[i] = e.runNode(ctx, node)
				return nil
			})
		}
		wg.Wait()

		for _, nr := range wave {
			state[nr.Name] = nr.Status
			report.Nodes = append(report.Nodes, nr)
			if nr.Status == StatusFailed && report.Failed == "" {
				report.Failed = nr.Name
				report.Err = nr.Err
			}
			e.observe(nr)
		}
	}

	for _, n := range g.nodes {
		if _, executed := state[n.Name]; !executed {
			nr := NodeReport{Name: n.Name, Status: StatusSkipped}
			state[n.Name] = StatusSkipped
			report.Nodes = append(report.Nodes, nr)
			e.observe(nr)
		}
	}

	report.Finished = time.Now()
	return report
}

func (e *Executor) runNode(ctx context.Context, n Node) NodeReport {
	start := time.Now()
	report := NodeReport{Name: n.Name}

	for attempt := 1; ; attempt++ {
		report.Attempts = attempt
		err := n.Run(ctx)
		if err == nil {
			report.Status = StatusSucceeded
			report.Err = nil
			break
		}
		report.Err = err
		log.Printf("Node %s attempt %d failed: %v", n.Name, attempt, err)

		if attempt > e.Retries || !Retryable(err) || ctx.Err() != nil {
			report.Status = StatusFailed
			break
		}
		if !sleepCtx(ctx, e.Backoff) {
			report.Status = StatusFailed
			break
		}
	}

	report.Duration = time.Since(start)
	return report
}

func (e *Executor) observe(nr NodeReport) {
	if e.Observer != nil {
		e.Observer(nr)
	}
}

// Retryable reports whether an error is worth another attempt. Error types
// opt out by implementing Retryable() bool; anything else is treated as a
// transient fault.
func Retryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// sleepCtx pauses for the backoff or until the context ends, reporting
// whether the full pause elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
