package staging

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

// WriteError reports a staging filesystem failure: permissions, capacity,
// or an unwritable directory. It is fatal for the batch at this layer; any
// retry belongs to the task graph.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("staging write to %s failed: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the task graph should retry the node.
func (e *WriteError) Retryable() bool {
	return true
}

// PathFor returns the deterministic staged location for a table and run
// date: <base>/YYYY/MM/DD/raw_<table>.csv. Extraction and load agree on
// paths through this function alone.
func PathFor(baseDir, table string, runDate time.Time) string {
	return filepath.Join(
		baseDir,
		runDate.Format("2006"),
		runDate.Format("01"),
		runDate.Format("02"),
		fmt.Sprintf("raw_%s.csv", table),
	)
}

// Writer persists datasets as partitioned CSV files.
type Writer struct {
	baseDir string
}

// NewWriter builds a writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// Write stores the dataset at its deterministic path, replacing any file a
// previous run of the same date left behind. Data lands in a temp file and
// is renamed into place, so a crash mid-write never leaves a torn file at
// the staged path.
func (w *Writer) Write(ds *models.Dataset, runDate time.Time) (string, error) {
	path := PathFor(w.baseDir, ds.Name, runDate)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(ds.Columns); err != nil {
		tmp.Close()
		return "", &WriteError{Path: path, Err: err}
	}
	for _, row := range ds.Rows {
		if err := cw.Write(row); err != nil {
			tmp.Close()
			return "", &WriteError{Path: path, Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", &WriteError{Path: path, Err: err}
	}

	if err := tmp.Close(); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	return path, nil
}
