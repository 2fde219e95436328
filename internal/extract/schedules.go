package extract

import (
	"context"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

// StopSchedulesExtractor fans out one schedule lookup per stop and flattens
// the nested stop-schedule payload to one row per scheduled stop.
type StopSchedulesExtractor struct {
	api         transit.API
	concurrency int
	threshold   float64
	window      time.Duration
	now         func() time.Time
}

// NewStopSchedulesExtractor builds a stop schedules extractor.
func NewStopSchedulesExtractor(api transit.API, cfg config.ExtractConfig) *StopSchedulesExtractor {
	return &StopSchedulesExtractor{
		api:         api,
		concurrency: cfg.FanoutConcurrency,
		threshold:   cfg.FailureThreshold,
		window:      cfg.ScheduleWindow,
		now:         time.Now,
	}
}

// Extract fetches the schedule window for every stop number. The window
// starts at the fetch time on the API side; only the end bound is supplied.
func (e *StopSchedulesExtractor) Extract(ctx context.Context, stopNumbers []string) (*models.Dataset, *Summary, error) {
	end := e.now().Add(e.window)

	rows, summary, err := fanOut(ctx, stopNumbers, e.concurrency, e.threshold, models.RawStopSchedules.Name,
		func(ctx context.Context, stopNumber string) ([][]string, error) {
			schedule, err := e.api.StopSchedule(ctx, stopNumber, end)
			if err != nil {
				return nil, err
			}
			return scheduleRows(schedule), nil
		})
	if err != nil {
		return nil, summary, err
	}

	fetched := e.now().UTC().Format(models.TimestampLayout)
	ds := models.NewDataset(models.RawStopSchedules.Name, models.RawStopSchedules.ColumnNames())
	for _, row := range rows {
		if err := ds.Append(append(row, fetched)); err != nil {
			return nil, summary, err
		}
	}

	return ds, summary, nil
}

// scheduleRows walks stop-schedule > route-schedules > scheduled-stops and
// emits one row per scheduled stop in raw column order, minus the trailing
// batch stamp. Missing times, variant, or bus objects become empty columns.
func scheduleRows(s *transit.StopSchedule) [][]string {
	stopNumber := s.Stop.Number.String()
	stopName := s.Stop.Name

	var rows [][]string
	for _, rs := range s.RouteSchedules {
		for _, ss := range rs.ScheduledStops {
			var arrScheduled, arrEstimated, depScheduled, depEstimated string
			if ss.Times != nil {
				if ss.Times.Arrival != nil {
					arrScheduled = ss.Times.Arrival.Scheduled
					arrEstimated = ss.Times.Arrival.Estimated
				}
				if ss.Times.Departure != nil {
					depScheduled = ss.Times.Departure.Scheduled
					depEstimated = ss.Times.Departure.Estimated
				}
			}

			var variantKey, variantName string
			if ss.Variant != nil {
				variantKey = ss.Variant.Key.String()
				variantName = ss.Variant.Name
			}

			var busKey, busBikeRack, busWifi string
			if ss.Bus != nil {
				busKey = ss.Bus.Key.String()
				busBikeRack = ss.Bus.BikeRack.String()
				busWifi = ss.Bus.Wifi.String()
			}

			rows = append(rows, []string{
				stopNumber,
				stopName,
				rs.Route.Key.String(),
				rs.Route.Name,
				rs.Route.Number.String(),
				ss.Key.String(),
				ss.Cancelled.String(),
				arrScheduled,
				arrEstimated,
				depScheduled,
				depEstimated,
				variantKey,
				variantName,
				busKey,
				busBikeRack,
				busWifi,
			})
		}
	}

	return rows
}
