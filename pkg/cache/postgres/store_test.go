package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS simulation_cache").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewWithDB(context.Background(), db)
	require.NoError(t, err)
	return s, mock
}

func TestLookupHit(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := json.Marshal(models.Failed("SolverError: diverged", "try again"))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT result, stored_at FROM simulation_cache").
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"result", "stored_at"}).AddRow(raw, ts))

	entry, ok, err := s.Lookup(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, entry.Result.Failure)
	assert.Equal(t, "SolverError: diverged", entry.Result.Failure.Error)
	assert.True(t, ts.Equal(entry.Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupMiss(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT result, stored_at FROM simulation_cache").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"result", "stored_at"}))

	_, ok, err := s.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Now()
	mock.ExpectExec("INSERT INTO simulation_cache .* ON CONFLICT \\(cache_key\\) DO UPDATE").
		WithArgs("k", models.StatusSuccess, sqlmock.AnyArg(), ts.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Upsert(context.Background(), "k", models.Succeeded(models.SimulationSuccess{MoleculeName: "H2"}), ts)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndClear(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM simulation_cache").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("DELETE FROM simulation_cache").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	deleted, err := s.Clear(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
