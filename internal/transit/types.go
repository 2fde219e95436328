package transit

import "encoding/json"

// FlexString decodes JSON strings, numbers, and booleans into one string
// form. The upstream API mixes encodings freely: route keys are numbers for
// numbered routes and strings for named ones ("BLUE"), and boolean flags
// arrive both bare and quoted.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// RoutesResponse is the envelope of GET /routes.json.
type RoutesResponse struct {
	Routes []Route `json:"routes"`
}

// Route is one catalog entry. Key, Number, and Name are required at
// ingestion; records missing any of them are dropped by the extractor.
type Route struct {
	Key          FlexString  `json:"key" validate:"required"`
	Number       FlexString  `json:"number" validate:"required"`
	Name         string      `json:"name" validate:"required"`
	CustomerType string      `json:"customer-type"`
	Coverage     string      `json:"coverage"`
	BadgeLabel   FlexString  `json:"badge-label"`
	BadgeStyle   *BadgeStyle `json:"badge-style"`
	Variants     []Variant   `json:"variants"`
}

// BadgeStyle is the nested style object flattened into route columns.
type BadgeStyle struct {
	BackgroundColor string `json:"background-color"`
	BorderColor     string `json:"border-color"`
	Color           string `json:"color"`
}

// Variant identifies one directional pattern of a route.
type Variant struct {
	Key  FlexString `json:"key"`
	Name string     `json:"name"`
}

// DestinationsResponse is the envelope of GET /variants/{key}/destinations.json.
type DestinationsResponse struct {
	Destinations []Destination `json:"destinations"`
}

// Destination is a rider-facing endpoint label of a variant. The payload
// does not echo the owning variant; extractors thread it through.
type Destination struct {
	Key  FlexString `json:"key"`
	Name string     `json:"name"`
}

// StopsResponse is the envelope of GET /stops.json?variant={key}.
type StopsResponse struct {
	Stops []Stop `json:"stops"`
}

// Stop is a physical stop served by a variant.
type Stop struct {
	Key         FlexString  `json:"key" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	Number      FlexString  `json:"number" validate:"required"`
	Direction   string      `json:"direction"`
	Side        string      `json:"side"`
	Street      *Street     `json:"street"`
	CrossStreet *Street     `json:"cross-street"`
	Centre      *Centre     `json:"centre"`
}

// Street names a street or cross-street reference on a stop.
type Street struct {
	Key  FlexString `json:"key"`
	Name string     `json:"name"`
}

// Centre carries a stop's coordinates.
type Centre struct {
	Geographic *Geographic `json:"geographic"`
}

// Geographic holds latitude/longitude, served by the API as strings.
type Geographic struct {
	Latitude  FlexString `json:"latitude"`
	Longitude FlexString `json:"longitude"`
}

// StopFeaturesResponse is the envelope of GET /stops/{number}/features.json.
type StopFeaturesResponse struct {
	StopFeatures []StopFeature `json:"stop-features"`
}

// StopFeature is one amenity record (heated shelter, bench, ...).
type StopFeature struct {
	Name  string     `json:"name"`
	Count FlexString `json:"count"`
}

// StopScheduleResponse is the envelope of GET /stops/{number}/schedule.json.
type StopScheduleResponse struct {
	StopSchedule StopSchedule `json:"stop-schedule"`
}

// StopSchedule nests per-route schedules under the queried stop.
type StopSchedule struct {
	Stop           Stop            `json:"stop"`
	RouteSchedules []RouteSchedule `json:"route-schedules"`
}

// RouteSchedule groups the scheduled stops of one route at the stop.
type RouteSchedule struct {
	Route          Route           `json:"route"`
	ScheduledStops []ScheduledStop `json:"scheduled-stops"`
}

// ScheduledStop is one scheduled/estimated arrival-departure record.
type ScheduledStop struct {
	Key       FlexString `json:"key"`
	Cancelled FlexString `json:"cancelled"`
	Times     *Times     `json:"times"`
	Variant   *Variant   `json:"variant"`
	Bus       *Bus       `json:"bus"`
}

// Times pairs arrival and departure bounds.
type Times struct {
	Arrival   *TimePair `json:"arrival"`
	Departure *TimePair `json:"departure"`
}

// TimePair holds zoneless local timestamps exactly as served.
type TimePair struct {
	Scheduled string `json:"scheduled"`
	Estimated string `json:"estimated"`
}

// Bus describes the vehicle assigned to a scheduled stop.
type Bus struct {
	Key      FlexString `json:"key"`
	BikeRack FlexString `json:"bike-rack"`
	Wifi     FlexString `json:"wifi"`
}
