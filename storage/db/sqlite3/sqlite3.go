// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// github.com/laika-ae/kbench/storage/db. It must be imported instead of
// go-sqlite3 to ensure foreign keys are properly honored.
package sqlite3

import (
	"database/sql"

	"github.com/laika-ae/kbench/storage/db"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(d *sql.DB) error {
		// An in-memory database lives only as long as its
		// connection, so never open a second one.
		d.SetMaxOpenConns(1)
		d.SetConnMaxLifetime(0)
		_, err := d.Exec("PRAGMA foreign_keys = ON")
		return err
	})
}
