package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

// Inserts are queued per row and flushed in chunks to keep batches bounded.
const insertChunkSize = 500

// Store is the warehouse surface the load and transform steps depend on.
// *Postgres implements it; tests substitute fakes.
type Store interface {
	ReplacePartition(ctx context.Context, spec models.TableSpec, runDate time.Time, ds *models.Dataset) error
	ReadPartition(ctx context.Context, spec models.TableSpec, runDate time.Time) (*models.Dataset, error)
}

// Postgres stores datasets in a PostgreSQL warehouse.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates every raw and normalized table that does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, spec := range models.AllTables() {
		if _, err := p.pool.Exec(ctx, createTableSQL(spec)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", spec.Name, err)
		}
	}
	return nil
}

// ReplacePartition supersedes the run date's rows with the dataset inside a
// single transaction. Readers never observe a half-replaced partition, and
// re-running a day converges on the same rows.
func (p *Postgres) ReplacePartition(ctx context.Context, spec models.TableSpec, runDate time.Time, ds *models.Dataset) error {
	day := runDate.Format(models.DateLayout)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteStmt := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", spec.Name, spec.PartitionExpr)
	if _, err := tx.Exec(ctx, deleteStmt, day); err != nil {
		return fmt.Errorf("failed to clear partition %s of %s: %w", day, spec.Name, err)
	}

	insertStmt := insertSQL(spec)
	batch := &pgx.Batch{}
	for _, row := range ds.Rows {
		batch.Queue(insertStmt, rowArgs(row)...)

		if batch.Len() >= insertChunkSize {
			if err := flushBatch(ctx, tx, batch); err != nil {
				return fmt.Errorf("failed to insert into %s: %w", spec.Name, err)
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := flushBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", spec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit partition %s of %s: %w", day, spec.Name, err)
	}

	return nil
}

// ReadPartition returns one run date's rows with the staging string
// encodings intact. Only raw tables are read back, and those are all text.
func (p *Postgres) ReadPartition(ctx context.Context, spec models.TableSpec, runDate time.Time) (*models.Dataset, error) {
	day := runDate.Format(models.DateLayout)
	cols := spec.ColumnNames()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(cols, ", "), spec.Name, spec.PartitionExpr)

	rows, err := p.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s of %s: %w", day, spec.Name, err)
	}
	defer rows.Close()

	ds := models.NewDataset(spec.Name, cols)
	for rows.Next() {
		values := make([]*string, len(cols))
		targets := make([]any, len(cols))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", spec.Name, err)
		}

		row := make([]string, len(cols))
		for i, v := range values {
			if v != nil {
				row[i] = *v
			}
		}
		if err := ds.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partition %s of %s: %w", day, spec.Name, err)
	}

	return ds, nil
}

// TableFreshness reports the newest partition of one normalized table.
type TableFreshness struct {
	Table      string `json:"table"`
	LatestDate string `json:"latest_date"`
	Rows       int64  `json:"rows"`
}

// Freshness reports the most recent created_date and its row count for
// every normalized table. Tables with no data yet report an empty date.
func (p *Postgres) Freshness(ctx context.Context) ([]TableFreshness, error) {
	out := make([]TableFreshness, 0, len(models.StgTables))
	for _, spec := range models.StgTables {
		query := fmt.Sprintf(
			"SELECT max(%[1]s)::text, count(*) FILTER (WHERE %[1]s = (SELECT max(%[1]s) FROM %[2]s)) FROM %[2]s",
			spec.PartitionExpr, spec.Name,
		)

		var latest *string
		var count int64
		if err := p.pool.QueryRow(ctx, query).Scan(&latest, &count); err != nil {
			return nil, fmt.Errorf("failed to read freshness of %s: %w", spec.Name, err)
		}

		tf := TableFreshness{Table: spec.Name, Rows: count}
		if latest != nil {
			tf.LatestDate = *latest
		}
		out = append(out, tf)
	}
	return out, nil
}

// createTableSQL builds CREATE TABLE IF NOT EXISTS DDL from a spec.
func createTableSQL(spec models.TableSpec) string {
	defs := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		defs[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", spec.Name, strings.Join(defs, ", "))
}

// insertSQL builds the parameterized single-row insert for a table.
func insertSQL(spec models.TableSpec) string {
	cols := spec.ColumnNames()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// rowArgs maps staged cells to insert parameters. Empty cells become NULLs
// so typed columns never receive empty strings.
func rowArgs(row []string) []any {
	args := make([]any, len(row))
	for i, cell := range row {
		if cell == "" {
			args[i] = nil
		} else {
			args[i] = cell
		}
	}
	return args
}

func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
