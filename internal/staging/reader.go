package staging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

// Reader loads staged files back into datasets.
type Reader struct {
	baseDir string
}

// NewReader builds a reader rooted at baseDir.
func NewReader(baseDir string) *Reader {
	return &Reader{baseDir: baseDir}
}

// Read loads the staged file for a table and run date. The header row
// becomes the dataset's column order; a header-only file is a valid empty
// dataset. encoding/csv enforces rectangular rows.
func (r *Reader) Read(table string, runDate time.Time) (*models.Dataset, error) {
	path := PathFor(r.baseDir, table, runDate)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("staged file %s has no header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	ds := models.NewDataset(table, header)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read staged file %s: %w", path, err)
		}
		if err := ds.Append(record); err != nil {
			return nil, err
		}
	}

	return ds, nil
}
