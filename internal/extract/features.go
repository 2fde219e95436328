package extract

import (
	"context"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

// StopFeaturesExtractor fans out one amenity lookup per stop.
type StopFeaturesExtractor struct {
	api         transit.API
	concurrency int
	threshold   float64
	now         func() time.Time
}

// NewStopFeaturesExtractor builds a stop features extractor.
func NewStopFeaturesExtractor(api transit.API, cfg config.ExtractConfig) *StopFeaturesExtractor {
	return &StopFeaturesExtractor{
		api:         api,
		concurrency: cfg.FanoutConcurrency,
		threshold:   cfg.FailureThreshold,
		now:         time.Now,
	}
}

// Extract fetches features for every stop number, threading the queried
// stop number into each row since the payload does not repeat it.
func (e *StopFeaturesExtractor) Extract(ctx context.Context, stopNumbers []string) (*models.Dataset, *Summary, error) {
	rows, summary, err := fanOut(ctx, stopNumbers, e.concurrency, e.threshold, models.RawStopFeatures.Name,
		func(ctx context.Context, stopNumber string) ([][]string, error) {
			features, err := e.api.StopFeatures(ctx, stopNumber)
			if err != nil {
				return nil, err
			}
			out := make([][]string, 0, len(features))
			for _, f := range features {
				out = append(out, []string{stopNumber, f.Name, f.Count.String()})
			}
			return out, nil
		})
	if err != nil {
		return nil, summary, err
	}

	fetched := e.now().UTC().Format(models.TimestampLayout)
	ds := models.NewDataset(models.RawStopFeatures.Name, models.RawStopFeatures.ColumnNames())
	for _, row := range rows {
		if err := ds.Append(append(row, fetched)); err != nil {
			return nil, summary, err
		}
	}

	return ds, summary, nil
}
