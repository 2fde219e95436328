package transit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexStringUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Quoted string",
			input:    `"BLUE"`,
			expected: "BLUE",
		},
		{
			name:     "Bare number",
			input:    `17`,
			expected: "17",
		},
		{
			name:     "Bare boolean",
			input:    `false`,
			expected: "false",
		},
		{
			name:     "Quoted boolean",
			input:    `"true"`,
			expected: "true",
		},
		{
			name:     "Null",
			input:    `null`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s FlexString
			err := json.Unmarshal([]byte(tt.input), &s)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.String())
		})
	}
}

func TestRouteDecoding(t *testing.T) {
	payload := `{
		"routes": [
			{
				"key": 17,
				"number": 17,
				"name": "Route 17 McGregor",
				"customer-type": "regular",
				"coverage": "regular",
				"badge-label": 17,
				"badge-style": {
					"background-color": "#ffffff",
					"border-color": "#d9d9d9",
					"color": "#000000"
				},
				"variants": [{"key": "17-1-K"}, {"key": "17-0-D"}]
			},
			{
				"key": "BLUE",
				"number": "BLUE",
				"name": "Blue Line",
				"coverage": "rapid transit",
				"variants": [{"key": "BLUE-0-S"}]
			}
		]
	}`

	var out RoutesResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &out))
	require.Len(t, out.Routes, 2)

	numbered := out.Routes[0]
	assert.Equal(t, "17", numbered.Key.String())
	assert.Equal(t, "regular", numbered.CustomerType)
	assert.Equal(t, "#ffffff", numbered.BadgeStyle.BackgroundColor)
	assert.Len(t, numbered.Variants, 2)

	named := out.Routes[1]
	assert.Equal(t, "BLUE", named.Key.String())
	assert.Nil(t, named.BadgeStyle)
}

func TestScheduleDecoding(t *testing.T) {
	payload := `{
		"stop-schedule": {
			"stop": {"key": 10064, "name": "NB Main at Pioneer", "number": 10064},
			"route-schedules": [
				{
					"route": {"key": 16, "number": 16, "name": "Route 16"},
					"scheduled-stops": [
						{
							"key": "25843076-34",
							"cancelled": "false",
							"times": {
								"arrival": {"scheduled": "2026-08-21T14:32:00", "estimated": "2026-08-21T14:33:10"},
								"departure": {"scheduled": "2026-08-21T14:32:00", "estimated": "2026-08-21T14:33:10"}
							},
							"variant": {"key": "16-1-K", "name": "Kingston Row"},
							"bus": {"key": 633, "bike-rack": "false", "wifi": false}
						}
					]
				}
			]
		}
	}`

	var out StopScheduleResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &out))

	sched := out.StopSchedule
	assert.Equal(t, "10064", sched.Stop.Number.String())
	require.Len(t, sched.RouteSchedules, 1)
	require.Len(t, sched.RouteSchedules[0].ScheduledStops, 1)

	ss := sched.RouteSchedules[0].ScheduledStops[0]
	assert.Equal(t, "false", ss.Cancelled.String())
	assert.Equal(t, "2026-08-21T14:33:10", ss.Times.Arrival.Estimated)
	assert.Equal(t, "633", ss.Bus.Key.String())
	assert.Equal(t, "false", ss.Bus.Wifi.String())
}
