package models

// Column is one warehouse column: its name and Postgres type.
type Column struct {
	Name string
	Type string
}

// TableSpec fixes a warehouse table's name, column set and order, and the
// SQL expression that maps a row to its run-date partition. Staging file
// headers, load-time validation, and DDL all derive from the same spec.
type TableSpec struct {
	Name          string
	Columns       []Column
	PartitionExpr string
}

// ColumnNames returns the column names in declaration order.
func (s TableSpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Raw tables hold API payloads as delivered: every column is text so that
// staged files round-trip byte-for-byte, and the partition is derived from
// the batch stamp.
var (
	RawRoutes = TableSpec{
		Name: "routes",
		Columns: []Column{
			{"key", "TEXT"},
			{"number", "TEXT"},
			{"name", "TEXT"},
			{"customer_type", "TEXT"},
			{"coverage", "TEXT"},
			{"badge_label", "TEXT"},
			{"badge_style_background_color", "TEXT"},
			{"badge_style_border_color", "TEXT"},
			{"badge_style_color", "TEXT"},
			{"variant", "TEXT"},
			{"timestamp_fetched", "TEXT"},
		},
		PartitionExpr: "timestamp_fetched::date",
	}

	RawDestinations = TableSpec{
		Name: "destinations",
		Columns: []Column{
			{"variant_key", "TEXT"},
			{"destination_id", "TEXT"},
			{"destination_name", "TEXT"},
			{"timestamp_fetched", "TEXT"},
		},
		PartitionExpr: "timestamp_fetched::date",
	}

	RawStops = TableSpec{
		Name: "stops",
		Columns: []Column{
			{"variant_key", "TEXT"},
			{"stop_id", "TEXT"},
			{"stop_number", "TEXT"},
			{"stop_name", "TEXT"},
			{"direction", "TEXT"},
			{"side", "TEXT"},
			{"street_key", "TEXT"},
			{"street_name", "TEXT"},
			{"cross_street_key", "TEXT"},
			{"cross_street_name", "TEXT"},
			{"latitude", "TEXT"},
			{"longitude", "TEXT"},
			{"timestamp_fetched", "TEXT"},
		},
		PartitionExpr: "timestamp_fetched::date",
	}

	RawStopFeatures = TableSpec{
		Name: "stop_features",
		Columns: []Column{
			{"stop_number", "TEXT"},
			{"feature_name", "TEXT"},
			{"feature_count", "TEXT"},
			{"timestamp_fetched", "TEXT"},
		},
		PartitionExpr: "timestamp_fetched::date",
	}

	RawStopSchedules = TableSpec{
		Name: "stop_schedules",
		Columns: []Column{
			{"stop_number", "TEXT"},
			{"stop_name", "TEXT"},
			{"route_key", "TEXT"},
			{"route_name", "TEXT"},
			{"route_number", "TEXT"},
			{"scheduled_stop_key", "TEXT"},
			{"cancelled", "TEXT"},
			{"arrival_scheduled", "TEXT"},
			{"arrival_estimated", "TEXT"},
			{"departure_scheduled", "TEXT"},
			{"departure_estimated", "TEXT"},
			{"variant_key", "TEXT"},
			{"variant_name", "TEXT"},
			{"bus_key", "TEXT"},
			{"bus_bike_rack", "TEXT"},
			{"bus_wifi", "TEXT"},
			{"timestamp_fetched", "TEXT"},
		},
		PartitionExpr: "timestamp_fetched::date",
	}
)

// Normalized tables are typed and partitioned on created_date.
var (
	StgRoutes = TableSpec{
		Name: "stg_routes",
		Columns: []Column{
			{"route_key", "TEXT"},
			{"route_number", "TEXT"},
			{"route_name", "TEXT"},
			{"customer_type", "TEXT"},
			{"coverage", "TEXT"},
			{"badge_label", "TEXT"},
			{"badge_background_color", "TEXT"},
			{"badge_border_color", "TEXT"},
			{"badge_color", "TEXT"},
			{"variant_key", "TEXT"},
			{"timestamp_fetched", "TIMESTAMPTZ"},
			{"created_date", "DATE"},
			{"created_time", "TIME"},
		},
		PartitionExpr: "created_date",
	}

	StgDestinations = TableSpec{
		Name: "stg_destinations",
		Columns: []Column{
			{"variant_key", "TEXT"},
			{"destination_id", "TEXT"},
			{"destination_name", "TEXT"},
			{"timestamp_fetched", "TIMESTAMPTZ"},
			{"created_date", "DATE"},
			{"created_time", "TIME"},
		},
		PartitionExpr: "created_date",
	}

	StgStops = TableSpec{
		Name: "stg_stops",
		Columns: []Column{
			{"variant_key", "TEXT"},
			{"stop_id", "TEXT"},
			{"stop_number", "BIGINT"},
			{"stop_name", "TEXT"},
			{"direction", "TEXT"},
			{"side", "TEXT"},
			{"street_key", "TEXT"},
			{"street_name", "TEXT"},
			{"cross_street_key", "TEXT"},
			{"cross_street_name", "TEXT"},
			{"latitude", "DOUBLE PRECISION"},
			{"longitude", "DOUBLE PRECISION"},
			{"timestamp_fetched", "TIMESTAMPTZ"},
			{"created_date", "DATE"},
			{"created_time", "TIME"},
		},
		PartitionExpr: "created_date",
	}

	StgStopFeatures = TableSpec{
		Name: "stg_stop_features",
		Columns: []Column{
			{"stop_number", "BIGINT"},
			{"feature_name", "TEXT"},
			{"feature_count", "BIGINT"},
			{"timestamp_fetched", "TIMESTAMPTZ"},
			{"created_date", "DATE"},
			{"created_time", "TIME"},
		},
		PartitionExpr: "created_date",
	}

	StgStopSchedules = TableSpec{
		Name: "stg_stop_schedules",
		Columns: []Column{
			{"scheduled_stop_key", "TEXT"},
			{"stop_number", "BIGINT"},
			{"stop_name", "TEXT"},
			{"route_key", "TEXT"},
			{"route_number", "TEXT"},
			{"route_name", "TEXT"},
			{"variant_key", "TEXT"},
			{"variant_name", "TEXT"},
			{"bus_key", "TEXT"},
			{"bus_bike_rack", "BOOLEAN"},
			{"bus_wifi", "BOOLEAN"},
			{"cancelled", "BOOLEAN"},
			{"arrival_scheduled", "TIMESTAMP"},
			{"arrival_estimated", "TIMESTAMP"},
			{"departure_scheduled", "TIMESTAMP"},
			{"departure_estimated", "TIMESTAMP"},
			{"arrival_time_difference", "BIGINT"},
			{"departure_time_difference", "BIGINT"},
			{"arrival_status", "TEXT"},
			{"departure_status", "TEXT"},
			{"timestamp_fetched", "TIMESTAMPTZ"},
			{"created_date", "DATE"},
			{"created_time", "TIME"},
		},
		PartitionExpr: "created_date",
	}
)

// RawTables lists every raw table in load order.
var RawTables = []TableSpec{
	RawRoutes,
	RawDestinations,
	RawStops,
	RawStopFeatures,
	RawStopSchedules,
}

// StgTables lists every normalized table in transform order.
var StgTables = []TableSpec{
	StgDestinations,
	StgRoutes,
	StgStops,
	StgStopFeatures,
	StgStopSchedules,
}

// AllTables lists raw tables followed by normalized tables.
func AllTables() []TableSpec {
	all := make([]TableSpec, 0, len(RawTables)+len(StgTables))
	all = append(all, RawTables...)
	all = append(all, StgTables...)
	return all
}
