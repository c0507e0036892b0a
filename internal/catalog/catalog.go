// Package catalog keeps a SQLite record of conversion runs: where the
// rasters came from, what the grid looked like, the soil types found and
// a checksum of every file written.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/shetran.soils/internal/shetran"
	"github.com/banshee-data/shetran.soils/internal/soil"
)

var (
	// ErrNotFound is returned when no run matches an ID.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an ID prefix matches several runs.
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// Catalog is an open run catalogue.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded conversion.
type Run struct {
	ID         string
	StartedAt  time.Time
	Elapsed    time.Duration
	InputDir   string
	Resolution string
	Profile    string
	KsatUnit   string
	AlphaUnit  string

	NCols, NRows int
	CellSize     float64

	ValidCells   int
	NoDataCells  int
	PartialCells int
	SoilTypes    int
	Categories   int

	Outputs []shetran.Output
}

// Open opens or creates the catalogue at path and applies pending
// migrations.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the pragmas in force for every statement.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	c := &Catalog{db: db, now: time.Now}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// Record stores a finished conversion and returns its run ID.
func (c *Catalog) Record(ctx context.Context, job shetran.Job, res *shetran.Result) (string, error) {
	if res == nil || res.Classification == nil {
		return "", fmt.Errorf("nothing to record")
	}
	cl := res.Classification
	id := uuid.NewString()
	started := c.now().Add(-res.Elapsed).UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, started_at, elapsed_ms, input_dir, resolution, profile, ksat_unit, alpha_unit,
			ncols, nrows, cellsize, valid_cells, nodata_cells, partial_cells, soil_types, categories
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, started.UnixNano(), res.Elapsed.Milliseconds(), job.Source.Dir, job.Source.Resolution,
		cl.Profile.String(), job.KsatUnit, job.AlphaUnit,
		cl.Header.NCols, cl.Header.NRows, cl.Header.CellSize,
		cl.Valid, cl.NoData, cl.Partial, len(cl.Types), len(cl.Categories),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, t := range cl.Types {
		v := t.Params
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO soil_types (run_id, number, theta_s, theta_r, ksat, alpha, n) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, t.Number, v.ThetaS, v.ThetaR, v.Ksat, v.Alpha, v.N,
		); err != nil {
			return "", fmt.Errorf("failed to insert soil type %d: %w", t.Number, err)
		}
	}

	for _, o := range res.Outputs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_outputs (run_id, kind, path, bytes, sha256) VALUES (?, ?, ?, ?, ?)`,
			id, o.Kind, o.Path, o.Bytes, o.SHA256,
		); err != nil {
			return "", fmt.Errorf("failed to insert output %s: %w", o.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

const runColumns = `run_id, started_at, elapsed_ms, input_dir, resolution, profile, ksat_unit, alpha_unit,
	ncols, nrows, cellsize, valid_cells, nodata_cells, partial_cells, soil_types, categories`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var started, elapsed int64
	if err := s.Scan(&r.ID, &started, &elapsed, &r.InputDir, &r.Resolution, &r.Profile, &r.KsatUnit, &r.AlphaUnit,
		&r.NCols, &r.NRows, &r.CellSize, &r.ValidCells, &r.NoDataCells, &r.PartialCells,
		&r.SoilTypes, &r.Categories); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	r.Elapsed = time.Duration(elapsed) * time.Millisecond
	return &r, nil
}

// List returns the most recent runs first. A limit of zero or less
// returns every run.
func (c *Catalog) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Show returns a run, with its outputs, and its soil types. id may be a
// unique prefix of the run ID.
func (c *Catalog) Show(ctx context.Context, id string) (*Run, []shetran.SoilType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, ErrNotFound
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(run_id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return nil, nil, err
	}
	var matches []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, nil, err
		}
		matches = append(matches, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 2:
		return nil, nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
	run := matches[0]

	if run.Outputs, err = c.outputs(ctx, run.ID); err != nil {
		return nil, nil, err
	}
	types, err := c.soilTypes(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, types, nil
}

func (c *Catalog) outputs(ctx context.Context, id string) ([]shetran.Output, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT kind, path, bytes, sha256 FROM run_outputs WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shetran.Output
	for rows.Next() {
		var o shetran.Output
		if err := rows.Scan(&o.Kind, &o.Path, &o.Bytes, &o.SHA256); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (c *Catalog) soilTypes(ctx context.Context, id string) ([]shetran.SoilType, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT number, theta_s, theta_r, ksat, alpha, n FROM soil_types WHERE run_id = ? ORDER BY number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []shetran.SoilType
	for rows.Next() {
		var t shetran.SoilType
		var v soil.VanGenuchten
		if err := rows.Scan(&t.Number, &v.ThetaS, &v.ThetaR, &v.Ksat, &v.Alpha, &v.N); err != nil {
			return nil, err
		}
		t.Params = v
		types = append(types, t)
	}
	return types, rows.Err()
}

// Delete removes a run and everything recorded with it.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
