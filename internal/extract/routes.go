package extract

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

// RoutesExtractor fetches the route catalog once and flattens it to one row
// per route-variant pair.
type RoutesExtractor struct {
	api      transit.API
	validate *validator.Validate
	now      func() time.Time
}

// NewRoutesExtractor builds a routes extractor.
func NewRoutesExtractor(api transit.API) *RoutesExtractor {
	return &RoutesExtractor{
		api:      api,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Extract returns the raw routes dataset and the ordered list of distinct
// variant keys found across all routes, first occurrence winning. Records
// missing key, number, or name are dropped and counted; the batch fails
// only when every record drops.
func (e *RoutesExtractor) Extract(ctx context.Context) (*models.Dataset, []string, *Summary, error) {
	routes, err := e.api.Routes(ctx)
	if err != nil {
		return nil, nil, nil, &ExtractionError{Source: models.RawRoutes.Name, Err: err}
	}

	fetched := e.now().UTC().Format(models.TimestampLayout)
	ds := models.NewDataset(models.RawRoutes.Name, models.RawRoutes.ColumnNames())
	summary := &Summary{Failures: make(map[string]string)}

	var variants []string
	seen := make(map[string]bool)

	for _, route := range routes {
		if err := e.validate.Struct(route); err != nil {
			summary.Dropped++
			log.Printf("Dropping route record missing required fields: %v", err)
			continue
		}

		// One row per variant; a route without variants still yields one
		// row with an empty variant column.
		routeVariants := route.Variants
		if len(routeVariants) == 0 {
			routeVariants = []transit.Variant{{}}
		}

		for _, v := range routeVariants {
			key := v.Key.String()
			if err := ds.Append(routeRow(route, key, fetched)); err != nil {
				return nil, nil, summary, err
			}
			if key != "" && !seen[key] {
				seen[key] = true
				variants = append(variants, key)
			}
		}
	}

	if len(routes) > 0 && summary.Dropped == len(routes) {
		return nil, nil, summary, &SchemaError{
			Source:  models.RawRoutes.Name,
			Dropped: summary.Dropped,
			Detail:  "every record was missing required fields",
		}
	}

	summary.Records = ds.Len()
	return ds, variants, summary, nil
}

// routeRow flattens one route-variant pair in raw routes column order.
// Absent badge styles become empty columns, never a row failure.
func routeRow(r transit.Route, variantKey, fetched string) []string {
	var background, border, color string
	if r.BadgeStyle != nil {
		background = r.BadgeStyle.BackgroundColor
		border = r.BadgeStyle.BorderColor
		color = r.BadgeStyle.Color
	}

	return []string{
		r.Key.String(),
		r.Number.String(),
		r.Name,
		r.CustomerType,
		r.Coverage,
		r.BadgeLabel.String(),
		background,
		border,
		color,
		variantKey,
		fetched,
	}
}
