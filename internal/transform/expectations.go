package transform

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

//go:embed schema.yml
var schemaYML []byte

// ExpectationViolation is a failed post-transform data quality check. It is
// reported to the run log, never used to roll the transform back.
type ExpectationViolation struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Test   string `json:"test"`
	Count  int    `json:"count"`
}

func (v ExpectationViolation) Error() string {
	return fmt.Sprintf("%s.%s failed %s check for %d rows", v.Table, v.Column, v.Test, v.Count)
}

type schemaFile struct {
	Version int           `yaml:"version"`
	Models  []modelSchema `yaml:"models"`
}

type modelSchema struct {
	Name    string         `yaml:"name"`
	Columns []columnSchema `yaml:"columns"`
}

type columnSchema struct {
	Name  string   `yaml:"name"`
	Tests []string `yaml:"tests"`
}

// Expectations evaluates the embedded schema checks against one normalized
// dataset and returns every violation found. Tables without declared checks
// pass vacuously.
func Expectations(ds *models.Dataset) ([]ExpectationViolation, error) {
	var file schemaFile
	if err := yaml.Unmarshal(schemaYML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema expectations: %w", err)
	}

	var violations []ExpectationViolation
	for _, model := range file.Models {
		if model.Name != ds.Name {
			continue
		}
		for _, col := range model.Columns {
			i := ds.ColumnIndex(col.Name)
			if i < 0 {
				return nil, fmt.Errorf("expectation on unknown column %s.%s", model.Name, col.Name)
			}
			for _, test := range col.Tests {
				var count int
				switch test {
				case "not_null":
					count = countNulls(ds, i)
				case "unique":
					count = countDuplicates(ds, i)
				default:
					return nil, fmt.Errorf("unknown expectation test %q on %s.%s", test, model.Name, col.Name)
				}
				if count > 0 {
					violations = append(violations, ExpectationViolation{
						Table:  model.Name,
						Column: col.Name,
						Test:   test,
						Count:  count,
					})
				}
			}
		}
	}
	return violations, nil
}

func countNulls(ds *models.Dataset, col int) int {
	n := 0
	for _, row := range ds.Rows {
		if row[col] == "" {
			n++
		}
	}
	return n
}

// countDuplicates counts rows whose value already appeared in the column.
// NULLs do not count against uniqueness.
func countDuplicates(ds *models.Dataset, col int) int {
	seen := make(map[string]bool, len(ds.Rows))
	n := 0
	for _, row := range ds.Rows {
		v := row[col]
		if v == "" {
			continue
		}
		if seen[v] {
			n++
		}
		seen[v] = true
	}
	return n
}
