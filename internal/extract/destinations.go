package extract

import (
	"context"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

// DestinationsExtractor fans out one destination lookup per route variant.
type DestinationsExtractor struct {
	api         transit.API
	concurrency int
	threshold   float64
	now         func() time.Time
}

// NewDestinationsExtractor builds a destinations extractor.
func NewDestinationsExtractor(api transit.API, cfg config.ExtractConfig) *DestinationsExtractor {
	return &DestinationsExtractor{
		api:         api,
		concurrency: cfg.FanoutConcurrency,
		threshold:   cfg.FailureThreshold,
		now:         time.Now,
	}
}

// Extract fetches destinations for every variant and tags each row with its
// owning variant key, which the API does not echo back. An empty variant
// list yields an empty dataset and no error.
func (e *DestinationsExtractor) Extract(ctx context.Context, variants []string) (*models.Dataset, *Summary, error) {
	rows, summary, err := fanOut(ctx, variants, e.concurrency, e.threshold, models.RawDestinations.Name,
		func(ctx context.Context, variant string) ([][]string, error) {
			destinations, err := e.api.VariantDestinations(ctx, variant)
			if err != nil {
				return nil, err
			}
			out := make([][]string, 0, len(destinations))
			for _, d := range destinations {
				out = append(out, []string{variant, d.Key.String(), d.Name})
			}
			return out, nil
		})
	if err != nil {
		return nil, summary, err
	}

	fetched := e.now().UTC().Format(models.TimestampLayout)
	ds := models.NewDataset(models.RawDestinations.Name, models.RawDestinations.ColumnNames())
	for _, row := range rows {
		if err := ds.Append(append(row, fetched)); err != nil {
			return nil, summary, err
		}
	}

	return ds, summary, nil
}
