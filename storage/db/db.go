// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db archives pipeline reports in a SQL database, so that
// runs on different machines or kernels can be compared later.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/laika-ae/kbench/benchseries"
)

// DB is a high-level interface to the results archive. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertRun       *sql.Stmt
	insertPoint     *sql.Stmt
	insertCrossover *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to configure its connections.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Runs (
	RunID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Workload VARCHAR(4096),
	LogPath VARCHAR(4096),
	ExitCode INTEGER,
	Started BIGINT
);
CREATE TABLE IF NOT EXISTS Points (
	RunID BIGINT UNSIGNED,
	Family VARCHAR(128),
	Series VARCHAR(128),
	Batch INTEGER,
	Value DOUBLE,
	PRIMARY KEY (RunID, Family, Series, Batch),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Crossovers (
	RunID BIGINT UNSIGNED,
	Family VARCHAR(128),
	A VARCHAR(128),
	B VARCHAR(128),
	Reason VARCHAR(16),
	Batch INTEGER,
	Speedup DOUBLE,
	PRIMARY KEY (RunID, Family, A, B),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertRun, err = db.sql.Prepare("INSERT INTO Runs(Workload, LogPath, ExitCode, Started) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertPoint, err = db.sql.Prepare("INSERT INTO Points(RunID, Family, Series, Batch, Value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertCrossover, err = db.sql.Prepare("INSERT INTO Crossovers(RunID, Family, A, B, Reason, Batch, Speedup) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// RunInfo describes one pipeline run.
type RunInfo struct {
	Workload string
	LogPath  string
	ExitCode int
	Started  time.Time
}

// A Run is an archived pipeline run.
type Run struct {
	ID int64
	RunInfo

	db *DB
}

// NewRun records a new run and returns it. Its report is added with
// InsertReport.
func (db *DB) NewRun(ctx context.Context, info RunInfo) (*Run, error) {
	res, err := db.insertRun.ExecContext(ctx, info.Workload, info.LogPath, info.ExitCode, info.Started.Unix())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Run{ID: id, RunInfo: info, db: db}, nil
}

// InsertReport stores the measured points and the crossovers of rep
// in a single transaction. Unmeasured points are not stored.
func (r *Run) InsertReport(ctx context.Context, rep *benchseries.Report) (err error) {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	points := tx.StmtContext(ctx, r.db.insertPoint)
	crossovers := tx.StmtContext(ctx, r.db.insertCrossover)
	for _, f := range rep.Families {
		for _, s := range f.Series {
			for i, batch := range f.Axis {
				if !s.Measured[i] {
					continue
				}
				if _, err := points.ExecContext(ctx, r.ID, f.Name, s.Name, batch, s.Values[i]); err != nil {
					return fmt.Errorf("storing %s/%s@%d: %w", f.Name, s.Name, batch, err)
				}
			}
		}
		for _, c := range f.Crossovers {
			if _, err := crossovers.ExecContext(ctx, r.ID, f.Name, c.A, c.B, c.Reason.String(), c.Batch, c.Speedup); err != nil {
				return fmt.Errorf("storing %s crossover %s vs %s: %w", f.Name, c.A, c.B, err)
			}
		}
	}
	return nil
}

// CountRuns returns the number of archived runs.
func (db *DB) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Runs").Scan(&n)
	return n, err
}

// A StoredPoint is one measured point of an archived run.
type StoredPoint struct {
	Series string
	Batch  int
	Value  float64
}

// Points returns the measured points of family in run, ordered by
// series and batch size.
func (db *DB) Points(ctx context.Context, runID int64, family string) ([]StoredPoint, error) {
	rows, err := db.sql.QueryContext(ctx,
		"SELECT Series, Batch, Value FROM Points WHERE RunID = ? AND Family = ? ORDER BY Series, Batch",
		runID, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredPoint
	for rows.Next() {
		var p StoredPoint
		if err := rows.Scan(&p.Series, &p.Batch, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Crossovers returns the crossovers of family in run.
func (db *DB) Crossovers(ctx context.Context, runID int64, family string) ([]*benchseries.CrossoverReport, error) {
	rows, err := db.sql.QueryContext(ctx,
		"SELECT A, B, Reason, Batch, Speedup FROM Crossovers WHERE RunID = ? AND Family = ? ORDER BY A, B",
		runID, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*benchseries.CrossoverReport
	for rows.Next() {
		c := new(benchseries.CrossoverReport)
		var reason string
		if err := rows.Scan(&c.A, &c.B, &reason, &c.Batch, &c.Speedup); err != nil {
			return nil, err
		}
		if err := c.Reason.UnmarshalText([]byte(reason)); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertRun, db.insertPoint, db.insertCrossover} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
