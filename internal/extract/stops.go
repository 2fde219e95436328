package extract

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

// StopsExtractor fans out one stop lookup per route variant. A stop served
// by several variants keeps one row per variant; the (variant_key, stop_id)
// pair is the grain.
type StopsExtractor struct {
	api         transit.API
	validate    *validator.Validate
	concurrency int
	threshold   float64
	now         func() time.Time
}

// NewStopsExtractor builds a stops extractor.
func NewStopsExtractor(api transit.API, cfg config.ExtractConfig) *StopsExtractor {
	return &StopsExtractor{
		api:         api,
		validate:    validator.New(),
		concurrency: cfg.FanoutConcurrency,
		threshold:   cfg.FailureThreshold,
		now:         time.Now,
	}
}

// Extract fetches stops for every variant and returns the raw stops dataset
// together with the ordered distinct stop-number list that drives the
// feature and schedule fan-outs.
func (e *StopsExtractor) Extract(ctx context.Context, variants []string) (*models.Dataset, []string, *Summary, error) {
	var dropped atomic.Int64

	rows, summary, err := fanOut(ctx, variants, e.concurrency, e.threshold, models.RawStops.Name,
		func(ctx context.Context, variant string) ([][]string, error) {
			stops, err := e.api.VariantStops(ctx, variant)
			if err != nil {
				return nil, err
			}
			out := make([][]string, 0, len(stops))
			for _, s := range stops {
				if err := e.validate.Struct(s); err != nil {
					dropped.Add(1)
					log.Printf("Dropping stop record for variant %s missing required fields: %v", variant, err)
					continue
				}
				out = append(out, stopRow(variant, s))
			}
			return out, nil
		})
	if err != nil {
		return nil, nil, summary, err
	}
	summary.Dropped = int(dropped.Load())

	fetched := e.now().UTC().Format(models.TimestampLayout)
	ds := models.NewDataset(models.RawStops.Name, models.RawStops.ColumnNames())
	numberIdx := ds.ColumnIndex("stop_number")

	var stopNumbers []string
	seen := make(map[string]bool)

	for _, row := range rows {
		if err := ds.Append(append(row, fetched)); err != nil {
			return nil, nil, summary, err
		}
		if number := row[numberIdx]; number != "" && !seen[number] {
			seen[number] = true
			stopNumbers = append(stopNumbers, number)
		}
	}

	return ds, stopNumbers, summary, nil
}

// stopRow flattens one stop in raw stops column order, minus the trailing
// batch stamp. Absent nested objects become empty columns.
func stopRow(variant string, s transit.Stop) []string {
	var streetKey, streetName, crossKey, crossName string
	if s.Street != nil {
		streetKey = s.Street.Key.String()
		streetName = s.Street.Name
	}
	if s.CrossStreet != nil {
		crossKey = s.CrossStreet.Key.String()
		crossName = s.CrossStreet.Name
	}

	var latitude, longitude string
	if s.Centre != nil && s.Centre.Geographic != nil {
		latitude = s.Centre.Geographic.Latitude.String()
		longitude = s.Centre.Geographic.Longitude.String()
	}

	return []string{
		variant,
		s.Key.String(),
		s.Number.String(),
		s.Name,
		s.Direction,
		s.Side,
		streetKey,
		streetName,
		crossKey,
		crossName,
		latitude,
		longitude,
	}
}
