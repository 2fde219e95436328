package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

const (
	statusOnTime = "On Time"
	statusLate   = "Late"
	statusEarly  = "Early"
)

// A Rule turns one raw table's run-date partition into its normalized
// counterpart. Apply is a pure in-memory transformation.
type Rule struct {
	Name   string
	Source models.TableSpec
	Target models.TableSpec
	Apply  func(raw *models.Dataset) (*models.Dataset, error)
}

// Rules returns the transformation set in execution order.
func Rules() []Rule {
	return []Rule{
		{Name: "stg_destinations", Source: models.RawDestinations, Target: models.StgDestinations, Apply: applyDestinations},
		{Name: "stg_routes", Source: models.RawRoutes, Target: models.StgRoutes, Apply: applyRoutes},
		{Name: "stg_stops", Source: models.RawStops, Target: models.StgStops, Apply: applyStops},
		{Name: "stg_stop_features", Source: models.RawStopFeatures, Target: models.StgStopFeatures, Apply: applyStopFeatures},
		{Name: "stg_stop_schedules", Source: models.RawStopSchedules, Target: models.StgStopSchedules, Apply: applyStopSchedules},
	}
}

func applyDestinations(raw *models.Dataset) (*models.Dataset, error) {
	idx, err := columnIndexes(raw, "variant_key", "destination_id", "destination_name", "timestamp_fetched")
	if err != nil {
		return nil, err
	}

	out := models.NewDataset(models.StgDestinations.Name, models.StgDestinations.ColumnNames())
	for _, row := range raw.Rows {
		st, err := batchStamp(row[idx["timestamp_fetched"]])
		if err != nil {
			return nil, err
		}
		rec := []string{
			clean(row[idx["variant_key"]]),
			clean(row[idx["destination_id"]]),
			clean(row[idx["destination_name"]]),
			st.fetched,
			st.date,
			st.time,
		}
		if err := out.Append(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyRoutes(raw *models.Dataset) (*models.Dataset, error) {
	idx, err := columnIndexes(raw,
		"key", "number", "name", "customer_type", "coverage", "badge_label",
		"badge_style_background_color", "badge_style_border_color", "badge_style_color",
		"variant", "timestamp_fetched")
	if err != nil {
		return nil, err
	}

	out := models.NewDataset(models.StgRoutes.Name, models.StgRoutes.ColumnNames())
	for _, row := range raw.Rows {
		st, err := batchStamp(row[idx["timestamp_fetched"]])
		if err != nil {
			return nil, err
		}
		rec := []string{
			clean(row[idx["key"]]),
			clean(row[idx["number"]]),
			clean(row[idx["name"]]),
			clean(row[idx["customer_type"]]),
			clean(row[idx["coverage"]]),
			clean(row[idx["badge_label"]]),
			clean(row[idx["badge_style_background_color"]]),
			clean(row[idx["badge_style_border_color"]]),
			clean(row[idx["badge_style_color"]]),
			clean(row[idx["variant"]]),
			st.fetched,
			st.date,
			st.time,
		}
		if err := out.Append(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyStops(raw *models.Dataset) (*models.Dataset, error) {
	idx, err := columnIndexes(raw,
		"variant_key", "stop_id", "stop_number", "stop_name", "direction", "side",
		"street_key", "street_name", "cross_street_key", "cross_street_name",
		"latitude", "longitude", "timestamp_fetched")
	if err != nil {
		return nil, err
	}

	out := models.NewDataset(models.StgStops.Name, models.StgStops.ColumnNames())
	for _, row := range raw.Rows {
		st, err := batchStamp(row[idx["timestamp_fetched"]])
		if err != nil {
			return nil, err
		}
		rec := []string{
			clean(row[idx["variant_key"]]),
			clean(row[idx["stop_id"]]),
			clean(row[idx["stop_number"]]),
			clean(row[idx["stop_name"]]),
			clean(row[idx["direction"]]),
			clean(row[idx["side"]]),
			clean(row[idx["street_key"]]),
			clean(row[idx["street_name"]]),
			clean(row[idx["cross_street_key"]]),
			clean(row[idx["cross_street_name"]]),
			clean(row[idx["latitude"]]),
			clean(row[idx["longitude"]]),
			st.fetched,
			st.date,
			st.time,
		}
		if err := out.Append(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyStopFeatures(raw *models.Dataset) (*models.Dataset, error) {
	idx, err := columnIndexes(raw, "stop_number", "feature_name", "feature_count", "timestamp_fetched")
	if err != nil {
		return nil, err
	}

	out := models.NewDataset(models.StgStopFeatures.Name, models.StgStopFeatures.ColumnNames())
	for _, row := range raw.Rows {
		st, err := batchStamp(row[idx["timestamp_fetched"]])
		if err != nil {
			return nil, err
		}
		rec := []string{
			clean(row[idx["stop_number"]]),
			clean(row[idx["feature_name"]]),
			clean(row[idx["feature_count"]]),
			st.fetched,
			st.date,
			st.time,
		}
		if err := out.Append(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyStopSchedules(raw *models.Dataset) (*models.Dataset, error) {
	idx, err := columnIndexes(raw,
		"stop_number", "stop_name", "route_key", "route_name", "route_number",
		"scheduled_stop_key", "cancelled",
		"arrival_scheduled", "arrival_estimated", "departure_scheduled", "departure_estimated",
		"variant_key", "variant_name", "bus_key", "bus_bike_rack", "bus_wifi",
		"timestamp_fetched")
	if err != nil {
		return nil, err
	}

	out := models.NewDataset(models.StgStopSchedules.Name, models.StgStopSchedules.ColumnNames())
	for _, row := range raw.Rows {
		st, err := batchStamp(row[idx["timestamp_fetched"]])
		if err != nil {
			return nil, err
		}

		arrivalScheduled, err := apiTimestamp(row[idx["arrival_scheduled"]])
		if err != nil {
			return nil, err
		}
		arrivalEstimated, err := apiTimestamp(row[idx["arrival_estimated"]])
		if err != nil {
			return nil, err
		}
		departureScheduled, err := apiTimestamp(row[idx["departure_scheduled"]])
		if err != nil {
			return nil, err
		}
		departureEstimated, err := apiTimestamp(row[idx["departure_estimated"]])
		if err != nil {
			return nil, err
		}

		arrivalDiff, arrivalStatus := timeDifference(arrivalScheduled, arrivalEstimated)
		departureDiff, departureStatus := timeDifference(departureScheduled, departureEstimated)

		rec := []string{
			clean(row[idx["scheduled_stop_key"]]),
			clean(row[idx["stop_number"]]),
			clean(row[idx["stop_name"]]),
			clean(row[idx["route_key"]]),
			clean(row[idx["route_number"]]),
			clean(row[idx["route_name"]]),
			clean(row[idx["variant_key"]]),
			clean(row[idx["variant_name"]]),
			clean(row[idx["bus_key"]]),
			normalizeBool(row[idx["bus_bike_rack"]]),
			normalizeBool(row[idx["bus_wifi"]]),
			normalizeBool(row[idx["cancelled"]]),
			arrivalScheduled,
			arrivalEstimated,
			departureScheduled,
			departureEstimated,
			arrivalDiff,
			departureDiff,
			arrivalStatus,
			departureStatus,
			st.fetched,
			st.date,
			st.time,
		}
		if err := out.Append(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// stamp carries the three normalized forms of one fetch timestamp.
type stamp struct {
	fetched string
	date    string
	time    string
}

// batchStamp parses a raw fetch timestamp and derives the partition date and
// time-of-day columns from it. The stamp is written once per extraction, so a
// malformed value means the raw partition itself is corrupt.
func batchStamp(cell string) (stamp, error) {
	ts, err := time.Parse(models.TimestampLayout, strings.TrimSpace(cell))
	if err != nil {
		return stamp{}, fmt.Errorf("bad timestamp_fetched %q: %w", cell, err)
	}
	ts = ts.UTC()
	return stamp{
		fetched: ts.Format(models.TimestampLayout),
		date:    ts.Format(models.DateLayout),
		time:    ts.Format(models.TimeLayout),
	}, nil
}

// apiTimestamp validates a zoneless schedule timestamp and returns it in
// canonical form. Empty cells stay empty and load as NULLs.
func apiTimestamp(cell string) (string, error) {
	c := clean(cell)
	if c == "" {
		return "", nil
	}
	ts, err := time.Parse(models.APITimeLayout, c)
	if err != nil {
		return "", fmt.Errorf("bad schedule time %q: %w", cell, err)
	}
	return ts.Format(models.APITimeLayout), nil
}

// timeDifference computes estimated minus scheduled in whole seconds and the
// matching status label. Both inputs are already canonical; if either side is
// missing, the difference and status stay empty.
func timeDifference(scheduled, estimated string) (diff, status string) {
	if scheduled == "" || estimated == "" {
		return "", ""
	}
	s, _ := time.Parse(models.APITimeLayout, scheduled)
	e, _ := time.Parse(models.APITimeLayout, estimated)
	seconds := int64(e.Sub(s).Seconds())
	return strconv.FormatInt(seconds, 10), scheduleStatus(seconds)
}

// scheduleStatus classifies a difference by the seconds component of the
// interval, not its full magnitude, so an offset of exactly one minute reads
// as on time. Flagged as a likely defect in DESIGN.md; keep the two in sync.
func scheduleStatus(seconds int64) string {
	switch component := seconds % 60; {
	case component == 0:
		return statusOnTime
	case component > 0:
		return statusLate
	default:
		return statusEarly
	}
}

// normalizeBool maps API boolean spellings onto Postgres literals. Unknown
// spellings pass through so the load surfaces them instead of guessing.
func normalizeBool(cell string) string {
	c := clean(cell)
	switch strings.ToLower(c) {
	case "true", "t", "1", "yes":
		return "true"
	case "false", "f", "0", "no":
		return "false"
	default:
		return c
	}
}

// clean trims surrounding whitespace. Empty cells stay empty and load as
// NULLs downstream.
func clean(cell string) string {
	return strings.TrimSpace(cell)
}

// columnIndexes resolves each named column against the raw dataset header,
// failing on the first missing one.
func columnIndexes(raw *models.Dataset, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		i := raw.ColumnIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("raw %s is missing column %q", raw.Name, name)
		}
		idx[name] = i
	}
	return idx, nil
}
