// Package store persists finished runs: an SQLite index of run metadata
// with the expectation-value series packed alongside as a msgpack blob.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	model      TEXT NOT NULL,
	solver     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	seed       INTEGER NOT NULL,
	ntraj      INTEGER NOT NULL,
	duration   REAL NOT NULL,
	points     INTEGER NOT NULL,
	series     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_model ON runs(model);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RunMeta describes one saved run.
type RunMeta struct {
	ID        int64     `json:"id"`
	Model     string    `json:"model"`
	Solver    string    `json:"solver"`
	CreatedAt time.Time `json:"created_at"`
	Seed      int64     `json:"seed"`
	NTraj     int       `json:"ntraj"`
	Duration  float64   `json:"duration"`
	Points    int       `json:"points"`
}

// Series holds the recorded expectation values of a run, split into real
// and imaginary parts per observable.
type Series struct {
	Times []float64   `msgpack:"times" json:"times"`
	Names []string    `msgpack:"names" json:"names"`
	Re    [][]float64 `msgpack:"re" json:"re"`
	Im    [][]float64 `msgpack:"im" json:"im"`
}

// NewSeries packs solver output into a storable series.
func NewSeries(times []float64, names []string, expect [][]complex128) (*Series, error) {
	if len(names) != len(expect) {
		return nil, fmt.Errorf("store: %d names for %d observables", len(names), len(expect))
	}
	s := &Series{
		Times: append([]float64(nil), times...),
		Names: append([]string(nil), names...),
		Re:    make([][]float64, len(expect)),
		Im:    make([][]float64, len(expect)),
	}
	for k, row := range expect {
		if len(row) != len(times) {
			return nil, fmt.Errorf("store: observable %d has %d samples for %d times", k, len(row), len(times))
		}
		s.Re[k] = make([]float64, len(row))
		s.Im[k] = make([]float64, len(row))
		for j, z := range row {
			s.Re[k][j] = real(z)
			s.Im[k][j] = imag(z)
		}
	}
	return s, nil
}

// SaveRun stores a finished run and returns its assigned id.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, series *Series) (int64, error) {
	blob, err := msgpack.Marshal(series)
	if err != nil {
		return 0, fmt.Errorf("store: encode series: %w", err)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (model, solver, created_at, seed, ntraj, duration, points, series)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.Model, meta.Solver, meta.CreatedAt, meta.Seed, meta.NTraj, meta.Duration, meta.Points, blob)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	return res.LastInsertId()
}

// ListRuns returns metadata for all saved runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, solver, created_at, seed, ntraj, duration, points
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var m RunMeta
		if err := rows.Scan(&m.ID, &m.Model, &m.Solver, &m.CreatedAt, &m.Seed, &m.NTraj, &m.Duration, &m.Points); err != nil {
			return nil, err
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// LoadRun returns the metadata of one run.
func (s *Store) LoadRun(ctx context.Context, id int64) (*RunMeta, error) {
	var m RunMeta
	err := s.db.QueryRowContext(ctx,
		`SELECT id, model, solver, created_at, seed, ntraj, duration, points
		 FROM runs WHERE id = ?`, id).
		Scan(&m.ID, &m.Model, &m.Solver, &m.CreatedAt, &m.Seed, &m.NTraj, &m.Duration, &m.Points)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load run %d: %w", id, err)
	}
	return &m, nil
}

// LoadSeries returns the stored expectation-value series of one run.
func (s *Store) LoadSeries(ctx context.Context, id int64) (*Series, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT series FROM runs WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load series %d: %w", id, err)
	}
	var series Series
	if err := msgpack.Unmarshal(blob, &series); err != nil {
		return nil, fmt.Errorf("store: decode series %d: %w", id, err)
	}
	return &series, nil
}
