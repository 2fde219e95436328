package models

import "fmt"

// Cell encodings shared across the pipeline. Batch stamps are RFC 3339 in
// UTC; the upstream API serves zoneless local timestamps for schedule times
// and raw tables keep those verbatim.
const (
	TimestampLayout = "2006-01-02T15:04:05Z07:00"
	APITimeLayout   = "2006-01-02T15:04:05"
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
)

// Dataset is an in-memory table with a fixed column order. Extractors
// produce datasets, the staging layer persists them, and the warehouse
// loader consumes them. Every cell is a string at this boundary; the empty
// string stands for NULL.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewDataset creates an empty dataset with the given column order.
func NewDataset(name string, columns []string) *Dataset {
	return &Dataset{Name: name, Columns: append([]string(nil), columns...)}
}

// Append adds a row, enforcing column arity.
func (d *Dataset) Append(row []string) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("dataset %s: row has %d values, want %d", d.Name, len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// ColumnIndex returns the position of a named column, or -1 if absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}
