// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Kbench captures the kernel log around a benchmark workload and
// extracts per-batch-size series from it.
//
// Usage:
//
//	kbench [flags] run <workload> <log>
//	kbench [flags] report <log>...
//	kbench [flags] families
//
// The run command clears the kernel ring buffer, follows it into log
// while workload runs under sh -c, then normalizes log in place and
// prints the series and crossovers it found. Its exit status is the
// exit status of workload, unless the capture could not be set up:
//
//	2  usage error
//	3  the log tooling (dmesg or the shell) is missing
//	4  not permitted to read or clear the kernel log
//	1  any other setup failure
//
// The report command extracts the series of logs that were captured
// earlier. A measurement that appears twice makes it fail with status 1.
//
// The families command prints the active benchmark families as YAML.
// The output can be edited and passed back with -config.
//
// Reports are printed as a text table, or as CSV with -csv. With -json,
// the full report is also written to a file for plotting. With -db,
// every report is archived in a database, given as driver:dsn, for
// example sqlite3:kbench.db or mysql:user@/kbench.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/laika-ae/kbench/benchseries"
	"github.com/laika-ae/kbench/capture"
	"github.com/laika-ae/kbench/family"
	"github.com/laika-ae/kbench/internal/harness"
	"github.com/laika-ae/kbench/kmsgfmt"
	"github.com/laika-ae/kbench/storage/db"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/laika-ae/kbench/storage/db/sqlite3"
)

// Exit statuses of setup failures.
const (
	exitSetup      = 1
	exitUsage      = 2
	exitTooling    = 3
	exitPermission = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	code := kbench(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(code)
}

type config struct {
	configFile  string
	families    string
	warmupBatch int
	capture     *capture.Options
	jsonOut     string
	csv         bool
	csvSentinel bool
	normalized  bool
	noRoot      bool
	dbSpec      string
	verbose     bool
}

func (c *config) flags(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "read benchmark families from YAML `file`")
	fs.StringVar(&c.families, "family", "", "restrict to the comma-separated `families`")
	fs.IntVar(&c.warmupBatch, "warmup-batch", c.warmupBatch, "discard the first sample of each series at `batch` size (negative disables)")
	fs.StringVar(&c.capture.Clear, "clear", c.capture.Clear, "`command` that clears the kernel log")
	fs.StringVar(&c.capture.Follow, "follow", c.capture.Follow, "`command` that follows the kernel log")
	fs.StringVar(&c.capture.Shell, "shell", c.capture.Shell, "`shell` that runs the workload with -c")
	fs.DurationVar(&c.capture.Settle, "settle", c.capture.Settle, "wait `duration` for the follower before starting the workload")
	fs.DurationVar(&c.capture.Drain, "drain", c.capture.Drain, "wait `duration` for the kernel log after the workload exits")
	fs.DurationVar(&c.capture.StopTimeout, "stop-timeout", c.capture.StopTimeout, "kill the follower if it has not stopped after `duration`")
	fs.BoolVar(&c.noRoot, "no-root", false, "do not require root to capture the kernel log")
	fs.StringVar(&c.jsonOut, "json", "", "also write the report as JSON to `file`")
	fs.BoolVar(&c.csv, "csv", false, "print the report as CSV")
	fs.BoolVar(&c.csvSentinel, "csv-sentinel", false, "print unmeasured points as the sentinel value in CSV")
	fs.BoolVar(&c.normalized, "normalized", false, "report: the logs are already normalized")
	fs.StringVar(&c.dbSpec, "db", "", "archive reports in `driver:dsn`")
	fs.BoolVar(&c.verbose, "v", false, "log debug output")
}

// kbench runs the command line args and returns the exit status.
func kbench(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	cfg := &config{
		warmupBatch: kmsgfmt.DefaultWarmupBatch,
		capture:     capture.DefaultOptions(),
	}
	cfg.capture.Stdout = stdout
	cfg.capture.Stderr = stderr

	fs := flag.NewFlagSet("kbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: kbench [flags] run <workload> <log>\n")
		fmt.Fprintf(stderr, "       kbench [flags] report <log>...\n")
		fmt.Fprintf(stderr, "       kbench [flags] families\n")
		fmt.Fprintf(stderr, "flags:\n")
		fs.PrintDefaults()
	}
	cfg.flags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	cfg.capture.RequireRoot = !cfg.noRoot

	log := logrus.New()
	log.Out = stderr
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	cfg.capture.Log = log

	cmd, rest := fs.Arg(0), fs.Args()
	if len(rest) > 0 {
		rest = rest[1:]
	}
	var ok bool
	switch cmd {
	case "run":
		ok = len(rest) == 2
	case "report":
		ok = len(rest) > 0
	case "families":
		ok = len(rest) == 0
	}
	if !ok {
		fs.Usage()
		return exitUsage
	}

	vocab, err := cfg.vocabulary()
	if err != nil {
		log.Errorf("kbench: %v", err)
		return exitSetup
	}

	switch cmd {
	case "families":
		data, err := family.Marshal(vocab.Families())
		if err != nil {
			log.Errorf("kbench: %v", err)
			return exitSetup
		}
		stdout.Write(data)
		return 0
	case "report":
		return cfg.report(ctx, stdout, log, vocab, rest)
	}
	return cfg.run(ctx, stdout, log, vocab, rest[0], rest[1])
}

func (c *config) vocabulary() (*family.Vocabulary, error) {
	fams := family.Builtin()
	if c.configFile != "" {
		var err error
		if fams, err = family.LoadFile(c.configFile); err != nil {
			return nil, err
		}
	}
	fams, err := family.Select(fams, c.families)
	if err != nil {
		return nil, err
	}
	return family.NewVocabulary(fams...)
}

// openDB opens the archive named by -db, or returns nil if there is none.
func (c *config) openDB() (*db.DB, error) {
	if c.dbSpec == "" {
		return nil, nil
	}
	driver, dsn, ok := strings.Cut(c.dbSpec, ":")
	if !ok || driver == "" {
		return nil, fmt.Errorf("-db %q is not driver:dsn", c.dbSpec)
	}
	d, err := db.OpenSQL(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	return d, nil
}

func (c *config) run(ctx context.Context, stdout io.Writer, log *logrus.Logger, vocab *family.Vocabulary, workload, logPath string) int {
	d, err := c.openDB()
	if err != nil {
		log.Errorf("kbench: %v", err)
		return exitSetup
	}
	if d != nil {
		defer d.Close()
	}
	opts := &harness.Options{
		Capture:     c.capture,
		Vocab:       vocab,
		WarmupBatch: c.warmupBatch,
		DB:          d,
		Log:         log,
	}
	out, err := harness.Run(ctx, opts, workload, logPath)
	switch {
	case errors.Is(err, capture.ErrToolingUnavailable):
		log.Errorf("kbench: %v", err)
		return exitTooling
	case errors.Is(err, capture.ErrPermission):
		log.Errorf("kbench: %v (run as root or pass -no-root)", err)
		return exitPermission
	case err != nil:
		log.Errorf("kbench: %v", err)
		return exitSetup
	}
	if out.Report != nil {
		if err := c.write(stdout, out.Report); err != nil {
			log.Errorf("kbench: %v", err)
		}
	}
	return out.ExitCode
}

func (c *config) report(ctx context.Context, stdout io.Writer, log *logrus.Logger, vocab *family.Vocabulary, paths []string) int {
	an, err := harness.Analyze(paths, c.normalized, vocab, c.warmupBatch, log)
	if err != nil {
		log.Errorf("kbench: %v", err)
		return exitSetup
	}
	log.Debugf("read %d logs: %v", len(paths), an.Stats)
	if err := c.write(stdout, an.Report); err != nil {
		log.Errorf("kbench: %v", err)
		return exitSetup
	}

	d, err := c.openDB()
	if err != nil {
		log.Errorf("kbench: %v", err)
		return exitSetup
	}
	if d == nil {
		return 0
	}
	defer d.Close()
	if err := harness.Archive(ctx, d, db.RunInfo{LogPath: strings.Join(paths, " ")}, an.Report); err != nil {
		log.Errorf("kbench: %v", err)
		return exitSetup
	}
	return 0
}

// write prints rep to stdout and, with -json, to the JSON file.
func (c *config) write(stdout io.Writer, rep *benchseries.Report) error {
	if c.jsonOut != "" {
		f, err := os.Create(c.jsonOut)
		if err != nil {
			return err
		}
		if err := rep.WriteJSON(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if c.csv {
		options := benchseries.CSV_PLAIN | benchseries.CSV_SUMMARY
		if c.csvSentinel {
			options |= benchseries.CSV_SENTINEL
		}
		return rep.WriteCSV(stdout, options)
	}
	return rep.WriteText(stdout)
}
