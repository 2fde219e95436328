package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetAppend(t *testing.T) {
	tests := []struct {
		name     string
		row      []string
		hasError bool
	}{
		{
			name:     "Matching arity",
			row:      []string{"a", "b"},
			hasError: false,
		},
		{
			name:     "Too few values",
			row:      []string{"a"},
			hasError: true,
		},
		{
			name:     "Too many values",
			row:      []string{"a", "b", "c"},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDataset("sample", []string{"one", "two"})
			err := d.Append(tt.row)
			if tt.hasError {
				assert.Error(t, err)
				assert.Equal(t, 0, d.Len())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, d.Len())
			}
		})
	}
}

func TestDatasetColumnIndex(t *testing.T) {
	d := NewDataset("sample", []string{"one", "two", "three"})

	assert.Equal(t, 1, d.ColumnIndex("two"))
	assert.Equal(t, -1, d.ColumnIndex("missing"))
}

func TestTableSpecColumnNames(t *testing.T) {
	// Staged headers and load validation both rely on spec order.
	names := RawDestinations.ColumnNames()
	assert.Equal(t, []string{"variant_key", "destination_id", "destination_name", "timestamp_fetched"}, names)
}
