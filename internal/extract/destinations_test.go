package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/transit"
)

func extractCfg(threshold float64) config.ExtractConfig {
	return config.ExtractConfig{
		FanoutConcurrency: 4,
		FailureThreshold:  threshold,
	}
}

func TestDestinationsExtract(t *testing.T) {
	api := &fakeAPI{destinations: map[string][]transit.Destination{
		"17-1-K": {
			{Key: "5", Name: "Downtown"},
			{Key: "6", Name: "Misericordia"},
		},
		"BLUE-0-S": {
			{Key: "9", Name: "St Norbert"},
		},
	}}
	e := NewDestinationsExtractor(api, extractCfg(0.2))
	e.now = frozenClock

	ds, summary, err := e.Extract(context.Background(), []string{"17-1-K", "BLUE-0-S"})
	require.NoError(t, err)

	assert.Equal(t, models.RawDestinations.ColumnNames(), ds.Columns)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, 3, summary.Records)
	assert.Empty(t, summary.Failures)

	// Rows merge in variant input order regardless of call completion order,
	// and every row is tagged with its owning variant.
	assert.Equal(t, []string{"17-1-K", "5", "Downtown", "2026-08-21T12:00:00Z"}, ds.Rows[0])
	assert.Equal(t, []string{"17-1-K", "6", "Misericordia", "2026-08-21T12:00:00Z"}, ds.Rows[1])
	assert.Equal(t, []string{"BLUE-0-S", "9", "St Norbert", "2026-08-21T12:00:00Z"}, ds.Rows[2])
}

func TestDestinationsExtractEmptyVariantList(t *testing.T) {
	e := NewDestinationsExtractor(&fakeAPI{}, extractCfg(0.2))
	e.now = frozenClock

	ds, summary, err := e.Extract(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, 0, summary.Records)
}

func TestDestinationsExtractPartialFailureWithinThreshold(t *testing.T) {
	api := &fakeAPI{destinations: map[string][]transit.Destination{
		"A": {{Key: "1", Name: "North"}},
		"C": {{Key: "2", Name: "South"}},
	}}
	e := NewDestinationsExtractor(api, extractCfg(0.5))
	e.now = frozenClock

	ds, summary, err := e.Extract(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "A", ds.Rows[0][0])
	assert.Equal(t, "C", ds.Rows[1][0])
	assert.Contains(t, summary.Failures, "B")
}

func TestDestinationsExtractFailureRateExceedsThreshold(t *testing.T) {
	api := &fakeAPI{destinations: map[string][]transit.Destination{
		"A": {{Key: "1", Name: "North"}},
		"C": {{Key: "2", Name: "South"}},
	}}
	e := NewDestinationsExtractor(api, extractCfg(0.2))
	e.now = frozenClock

	_, summary, err := e.Extract(context.Background(), []string{"A", "B", "C"})
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.True(t, extractionErr.Retryable())
	assert.Contains(t, err.Error(), "1 of 3")
	assert.Contains(t, summary.Failures, "B")
}
