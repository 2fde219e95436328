package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/staging"
)

type fakeStore struct {
	replaced map[string]*models.Dataset
	err      error
}

func (f *fakeStore) ReplacePartition(_ context.Context, spec models.TableSpec, _ time.Time, ds *models.Dataset) error {
	if f.err != nil {
		return f.err
	}
	if f.replaced == nil {
		f.replaced = make(map[string]*models.Dataset)
	}
	f.replaced[spec.Name] = ds
	return nil
}

func (f *fakeStore) ReadPartition(context.Context, models.TableSpec, time.Time) (*models.Dataset, error) {
	return nil, errors.New("not implemented")
}

var testDate = time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

func stageDataset(t *testing.T, dir string, ds *models.Dataset) {
	t.Helper()
	_, err := staging.NewWriter(dir).Write(ds, testDate)
	require.NoError(t, err)
}

func TestLoadReplacesPartition(t *testing.T) {
	dir := t.TempDir()

	ds := models.NewDataset(models.RawDestinations.Name, models.RawDestinations.ColumnNames())
	require.NoError(t, ds.Append([]string{"16-1-K", "5156", "Downtown", "2026-08-21T12:00:00Z"}))
	require.NoError(t, ds.Append([]string{"16-1-K", "", "Airport", "2026-08-21T12:00:00Z"}))
	stageDataset(t, dir, ds)

	store := &fakeStore{}
	l := New(staging.NewReader(dir), store)

	n, err := l.Load(context.Background(), models.RawDestinations, testDate)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Contains(t, store.replaced, "destinations")
	assert.Equal(t, ds.Rows, store.replaced["destinations"].Rows)
}

func TestLoadRejectsHeaderMismatch(t *testing.T) {
	dir := t.TempDir()

	// Staged with a stale schema: one column short.
	cols := models.RawDestinations.ColumnNames()
	stale := models.NewDataset(models.RawDestinations.Name, cols[:len(cols)-1])
	require.NoError(t, stale.Append([]string{"16-1-K", "5156", "Downtown"}))
	stageDataset(t, dir, stale)

	store := &fakeStore{}
	l := New(staging.NewReader(dir), store)

	_, err := l.Load(context.Background(), models.RawDestinations, testDate)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.False(t, mismatch.Retryable())
	assert.Empty(t, store.replaced, "nothing should reach the warehouse")
}

func TestLoadRejectsReorderedColumns(t *testing.T) {
	dir := t.TempDir()

	reordered := models.NewDataset(models.RawDestinations.Name,
		[]string{"destination_id", "variant_key", "destination_name", "timestamp_fetched"})
	require.NoError(t, reordered.Append([]string{"5156", "16-1-K", "Downtown", "2026-08-21T12:00:00Z"}))
	stageDataset(t, dir, reordered)

	l := New(staging.NewReader(dir), &fakeStore{})

	_, err := l.Load(context.Background(), models.RawDestinations, testDate)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Error(), "destination_id")
}

func TestLoadWrapsStoreFailure(t *testing.T) {
	dir := t.TempDir()

	ds := models.NewDataset(models.RawDestinations.Name, models.RawDestinations.ColumnNames())
	require.NoError(t, ds.Append([]string{"16-1-K", "5156", "Downtown", "2026-08-21T12:00:00Z"}))
	stageDataset(t, dir, ds)

	cause := errors.New("connection reset")
	l := New(staging.NewReader(dir), &fakeStore{err: cause})

	_, err := l.Load(context.Background(), models.RawDestinations, testDate)

	var transient *TransientLoadError
	require.ErrorAs(t, err, &transient)
	assert.True(t, transient.Retryable())
	assert.ErrorIs(t, err, cause)
}

func TestLoadMissingStagedFile(t *testing.T) {
	l := New(staging.NewReader(t.TempDir()), &fakeStore{})

	_, err := l.Load(context.Background(), models.RawRoutes, testDate)

	assert.Error(t, err)
}
