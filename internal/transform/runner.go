package transform

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

// Runner executes the transformation rules for one run date: read the raw
// partition, apply the rule, replace the normalized partition, then report
// expectation failures without blocking.
type Runner struct {
	store warehouse.Store
}

func NewRunner(store warehouse.Store) *Runner {
	return &Runner{store: store}
}

// Result summarizes one rule's execution.
type Result struct {
	Rule       string                 `json:"rule"`
	Rows       int                    `json:"rows"`
	Violations []ExpectationViolation `json:"violations,omitempty"`
}

// Run executes every rule in order for the run date. The first rule failure
// stops the run; expectation violations are logged and carried in the
// results instead.
func (r *Runner) Run(ctx context.Context, runDate time.Time) ([]Result, error) {
	results := make([]Result, 0, len(Rules()))
	for _, rule := range Rules() {
		raw, err := r.store.ReadPartition(ctx, rule.Source, runDate)
		if err != nil {
			return results, fmt.Errorf("rule %s: %w", rule.Name, err)
		}

		out, err := rule.Apply(raw)
		if err != nil {
			return results, fmt.Errorf("rule %s: %w", rule.Name, err)
		}

		if err := r.store.ReplacePartition(ctx, rule.Target, runDate, out); err != nil {
			return results, fmt.Errorf("rule %s: %w", rule.Name, err)
		}

		violations, err := Expectations(out)
		if err != nil {
			return results, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		for _, v := range violations {
			log.Printf("Warning: expectation violated: %v", v)
		}

		log.Printf("Transformed %d rows into %s", out.Len(), rule.Target.Name)
		results = append(results, Result{Rule: rule.Name, Rows: out.Len(), Violations: violations})
	}
	return results, nil
}
