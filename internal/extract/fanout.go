package extract

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// Summary describes one extraction batch: how many rows made it into the
// dataset, how many records were dropped for schema violations, and which
// fan-out calls failed.
type Summary struct {
	Records  int
	Dropped  int
	Failures map[string]string
}

// fanOut calls fn once per item with bounded parallelism. Each call writes
// rows into its own slot; the slots are merged in input order after the
// group finishes, so no call touches shared state. Per-item failures are
// recorded and tolerated until their fraction exceeds threshold, at which
// point the whole batch fails.
func fanOut(ctx context.Context, items []string, concurrency int, threshold float64, source string, fn func(ctx context.Context, item string) ([][]string, error)) ([][]string, *Summary, error) {
	slots := make([][][]string, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			rows, err := fn(ctx, item)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = rows
			return nil
		})
	}
	g.Wait()

	summary := &Summary{Failures: make(map[string]string)}
	var merged [][]string
	failed := 0

	for i, item := range items {
		if errs[i] != nil {
			failed++
			summary.Failures[item] = errs[i].Error()
			log.Printf("Fan-out call for %s %q failed: %v", source, item, errs[i])
			continue
		}
		merged = append(merged, slots[i]...)
	}
	summary.Records = len(merged)

	if failed > 0 {
		failureRate := float64(failed) / float64(len(items))
		if failureRate > threshold {
			return nil, summary, &ExtractionError{
				Source: source,
				Err:    fmt.Errorf("%d of %d calls failed (rate %.2f exceeds threshold %.2f)", failed, len(items), failureRate, threshold),
			}
		}
		log.Printf("Fan-out for %s finished with %d of %d calls failed, within threshold", source, failed, len(items))
	}

	return merged, summary, nil
}
