package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

func stgRoutesDataset(t *testing.T, rows ...[]string) *models.Dataset {
	t.Helper()
	ds := models.NewDataset(models.StgRoutes.Name, models.StgRoutes.ColumnNames())
	for _, row := range rows {
		require.NoError(t, ds.Append(row))
	}
	return ds
}

func stgRouteRow(routeKey, variantKey string) []string {
	return []string{
		routeKey, "16", "Selkirk-Osborne", "regular", "regular", "16",
		"#ffffff", "#d9d9d9", "#231f20", variantKey,
		"2026-08-21T12:00:00Z", "2026-08-21", "12:00:00",
	}
}

func TestExpectationsCleanDataset(t *testing.T) {
	ds := stgRoutesDataset(t,
		stgRouteRow("16", "16-1-K"),
		stgRouteRow("16", "16-0-D"),
	)

	violations, err := Expectations(ds)

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestExpectationsNotNull(t *testing.T) {
	ds := stgRoutesDataset(t,
		stgRouteRow("", "16-1-K"),
		stgRouteRow("16", "16-0-D"),
		stgRouteRow("", "16-2-E"),
	)

	violations, err := Expectations(ds)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "stg_routes", violations[0].Table)
	assert.Equal(t, "route_key", violations[0].Column)
	assert.Equal(t, "not_null", violations[0].Test)
	assert.Equal(t, 2, violations[0].Count)
}

func TestExpectationsUniqueVariant(t *testing.T) {
	ds := stgRoutesDataset(t,
		stgRouteRow("16", "16-1-K"),
		stgRouteRow("16", "16-1-K"),
		stgRouteRow("16", "16-0-D"),
	)

	violations, err := Expectations(ds)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "variant_key", violations[0].Column)
	assert.Equal(t, "unique", violations[0].Test)
	assert.Equal(t, 1, violations[0].Count)
	assert.Contains(t, violations[0].Error(), "stg_routes.variant_key")
}

func TestExpectationsSkipUncheckedTable(t *testing.T) {
	ds := models.NewDataset("scratch", []string{"anything"})
	require.NoError(t, ds.Append([]string{""}))

	violations, err := Expectations(ds)

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestExpectationsResolveAgainstSchema(t *testing.T) {
	// Every check in schema.yml must reference a real column of the table
	// it is declared on; an empty dataset then passes cleanly.
	for _, spec := range models.StgTables {
		ds := models.NewDataset(spec.Name, spec.ColumnNames())
		violations, err := Expectations(ds)
		require.NoError(t, err, "expectations for %s reference a missing column", spec.Name)
		assert.Empty(t, violations)
	}
}
