// Package history records computed simulation runs in SQLite. It backs
// the hardware budget, the history CLI and the MCP history tool.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Tracker records and queries simulation runs.
type Tracker interface {
	// Record stores a run. An empty ID is filled in.
	Record(ctx context.Context, rec models.RunRecord) error
	// Recent returns runs matching the filter, newest first.
	Recent(ctx context.Context, f models.RunFilter) ([]models.RunRecord, error)
	// Summary aggregates runs since the given time by backend and status.
	Summary(ctx context.Context, since time.Time) ([]models.RunSummary, error)
	// CountRuns returns how many runs a backend served since a given time.
	CountRuns(ctx context.Context, backend string, since time.Time) (int64, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db        *sql.DB
	retention time.Duration
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

const createTable = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	id TEXT PRIMARY KEY,
	cache_key TEXT NOT NULL,
	molecule_name TEXT NOT NULL,
	backend TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	exact_energy REAL,
	vqe_energy REAL,
	qubit_count INTEGER,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_backend_time ON simulation_runs(backend, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_created ON simulation_runs(created_at);
`

// New opens the history database. A positive retentionDays starts a
// background loop deleting older runs every hour.
func New(dbPath string, retentionDays int) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	t := &SQLiteTracker{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		done:      make(chan struct{}),
	}
	if t.retention > 0 {
		t.wg.Add(1)
		go t.retentionLoop()
	}
	return t, nil
}

func (t *SQLiteTracker) Record(ctx context.Context, rec models.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO simulation_runs
		 (id, cache_key, molecule_name, backend, status, error, exact_energy, vqe_energy, qubit_count, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CacheKey, rec.MoleculeName, rec.Backend, rec.Status, rec.Error,
		rec.ExactEnergy, rec.VQEEnergy, rec.QubitCount, rec.DurationMs, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (t *SQLiteTracker) Recent(ctx context.Context, f models.RunFilter) ([]models.RunRecord, error) {
	q := `SELECT id, cache_key, molecule_name, backend, status, error,
		exact_energy, vqe_energy, qubit_count, duration_ms, created_at
		FROM simulation_runs WHERE 1=1`
	var args []any

	if f.Backend != "" {
		q += " AND backend = ?"
		args = append(args, f.Backend)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if !f.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, f.Since.UTC())
	}

	q += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.RunRecord
	for rows.Next() {
		var r models.RunRecord
		var errText sql.NullString
		var exact, vqe sql.NullFloat64
		var qubits sql.NullInt64
		if err := rows.Scan(
			&r.ID, &r.CacheKey, &r.MoleculeName, &r.Backend, &r.Status, &errText,
			&exact, &vqe, &qubits, &r.DurationMs, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.Error = errText.String
		r.ExactEnergy = exact.Float64
		r.VQEEnergy = vqe.Float64
		r.QubitCount = int(qubits.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *SQLiteTracker) Summary(ctx context.Context, since time.Time) ([]models.RunSummary, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT backend, status, COUNT(*), AVG(duration_ms)
		 FROM simulation_runs WHERE created_at >= ?
		 GROUP BY backend, status ORDER BY backend, status`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("history summary: %w", err)
	}
	defer rows.Close()

	var out []models.RunSummary
	for rows.Next() {
		var s models.RunSummary
		if err := rows.Scan(&s.Backend, &s.Status, &s.Runs, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("scan history summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *SQLiteTracker) CountRuns(ctx context.Context, backend string, since time.Time) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM simulation_runs WHERE backend = ? AND created_at >= ?`,
		backend, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Cleanup deletes runs older than the retention period.
func (t *SQLiteTracker) Cleanup(ctx context.Context) (int64, error) {
	if t.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-t.retention).UTC()
	res, err := t.db.ExecContext(ctx, `DELETE FROM simulation_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database. Later calls
// return the first call's result.
func (t *SQLiteTracker) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()
		t.closeErr = t.db.Close()
	})
	return t.closeErr
}

func (t *SQLiteTracker) retentionLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			_, _ = t.Cleanup(context.Background())
		}
	}
}
