package loader

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/staging"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

// SchemaMismatchError means a staged file's header no longer lines up with
// the warehouse table. Retrying cannot fix it; the staged file has to be
// regenerated against the current schema.
type SchemaMismatchError struct {
	Table  string
	Detail string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("staged %s does not match warehouse schema: %s", e.Table, e.Detail)
}

func (e *SchemaMismatchError) Retryable() bool { return false }

// TransientLoadError wraps warehouse failures that a later attempt may clear,
// such as dropped connections or lock contention.
type TransientLoadError struct {
	Table string
	Err   error
}

func (e *TransientLoadError) Error() string {
	return fmt.Sprintf("load of %s failed: %v", e.Table, e.Err)
}

func (e *TransientLoadError) Unwrap() error { return e.Err }

func (e *TransientLoadError) Retryable() bool { return true }

// Loader moves staged CSV partitions into the warehouse.
type Loader struct {
	reader *staging.Reader
	store  warehouse.Store
}

func New(reader *staging.Reader, store warehouse.Store) *Loader {
	return &Loader{reader: reader, store: store}
}

// Load reads the run date's staged file for a table and replaces the
// matching warehouse partition with its rows. It returns the number of
// rows loaded.
func (l *Loader) Load(ctx context.Context, spec models.TableSpec, runDate time.Time) (int, error) {
	ds, err := l.reader.Read(spec.Name, runDate)
	if err != nil {
		return 0, err
	}

	if err := validateHeader(spec, ds.Columns); err != nil {
		return 0, err
	}

	if err := l.store.ReplacePartition(ctx, spec, runDate, ds); err != nil {
		return 0, &TransientLoadError{Table: spec.Name, Err: err}
	}

	log.Printf("Loaded %d rows into %s for %s", ds.Len(), spec.Name, runDate.Format(models.DateLayout))
	return ds.Len(), nil
}

// validateHeader checks the staged header against the table's columns in
// order. Loads are positional, so order matters as much as names.
func validateHeader(spec models.TableSpec, header []string) error {
	want := spec.ColumnNames()
	if len(header) != len(want) {
		return &SchemaMismatchError{
			Table:  spec.Name,
			Detail: fmt.Sprintf("expected %d columns, staged file has %d", len(want), len(header)),
		}
	}
	for i, name := range want {
		if header[i] != name {
			return &SchemaMismatchError{
				Table:  spec.Name,
				Detail: fmt.Sprintf("column %d is %q, expected %q", i, header[i], name),
			}
		}
	}
	return nil
}
