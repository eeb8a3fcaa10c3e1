// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest opens empty results archives for tests.
package dbtest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/laika-ae/kbench/storage/db"
	_ "github.com/laika-ae/kbench/storage/db/sqlite3"
)

var mysqlDSN = flag.String("mysql", "", "run database tests against the MySQL server at this `dsn` (e.g. root:@tcp(localhost)/) instead of in-memory SQLite")

// createEmptyMySQLDB makes a new, empty database for the test.
func createEmptyMySQLDB(t *testing.T, prefix string) (dsn string, cleanup func()) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal(err)
	}
	name := "kbench_test_" + hex.EncodeToString(buf)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	conn, err := sql.Open("mysql", prefix)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(fmt.Sprintf("CREATE DATABASE `%s`", name)); err != nil {
		conn.Close()
		t.Fatal(err)
	}
	t.Logf("Using database %q", name)

	return prefix + name, func() {
		if _, err := conn.Exec(fmt.Sprintf("DROP DATABASE `%s`", name)); err != nil {
			t.Error(err)
		}
		conn.Close()
	}
}

// NewDB makes a connection to a testing database, either in-memory
// SQLite or MySQL depending on the -mysql flag. The database is closed
// (and, for MySQL, dropped) when the test finishes.
func NewDB(t *testing.T) *db.DB {
	t.Helper()
	driverName, dataSourceName := "sqlite3", ":memory:"
	var mysqlCleanup func()
	if *mysqlDSN != "" {
		driverName = "mysql"
		dataSourceName, mysqlCleanup = createEmptyMySQLDB(t, *mysqlDSN)
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		if mysqlCleanup != nil {
			mysqlCleanup()
		}
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		if mysqlCleanup != nil {
			mysqlCleanup()
		}
	})

	// Make sure the database really is empty.
	runs, err := d.CountRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if runs != 0 {
		t.Fatalf("found %d row(s) in Runs, want 0", runs)
	}
	return d
}
