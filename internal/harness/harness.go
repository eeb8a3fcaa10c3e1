// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package harness drives one pipeline run: capture the kernel log
// around a workload, normalize the log in place, extract the series,
// and archive the report.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/laika-ae/kbench/benchseries"
	"github.com/laika-ae/kbench/capture"
	"github.com/laika-ae/kbench/family"
	"github.com/laika-ae/kbench/kmsgfmt"
	"github.com/laika-ae/kbench/storage/db"
	"github.com/sirupsen/logrus"
)

// Options configures a pipeline run.
type Options struct {
	Capture *capture.Options
	Vocab   *family.Vocabulary

	// WarmupBatch is passed to kmsgfmt.Options.
	WarmupBatch int

	// DB, if non-nil, receives the report of every run.
	DB *db.DB

	Log logrus.FieldLogger
}

// DefaultOptions returns options for the built-in families.
func DefaultOptions() (*Options, error) {
	vocab, err := family.NewVocabulary(family.Builtin()...)
	if err != nil {
		return nil, err
	}
	return &Options{
		Capture: capture.DefaultOptions(),
		Vocab:   vocab,
		Log:     logrus.StandardLogger(),
	}, nil
}

func (o *Options) log() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// An Outcome is the result of a run whose workload was started.
type Outcome struct {
	// ExitCode is the workload's exit code. It is the exit status of
	// the run whatever happens afterwards.
	ExitCode int

	Stats  kmsgfmt.Stats
	Report *benchseries.Report // nil if post-processing failed

	// PostErr is the first error after the workload ran. If it is a
	// *kmsgfmt.PostProcessError, the raw log is still at its path.
	PostErr error
}

// Run runs workload under capture into logPath and post-processes the
// log. It returns an error only if the workload was never started; in
// that case logPath is left untouched, unless the failure was opening
// it or starting the follower.
func Run(ctx context.Context, opts *Options, workload, logPath string) (*Outcome, error) {
	log := opts.log().WithField("log", logPath)

	copts := *opts.Capture
	if copts.Log == nil {
		copts.Log = opts.log()
	}
	c, err := capture.New(&copts)
	if err != nil {
		return nil, err
	}
	// Check and clear before the sink is truncated.
	if err := c.Prepare(ctx); err != nil {
		return nil, err
	}
	sink, err := capture.OpenSink(logPath)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	started := time.Now()
	code, err := c.Run(ctx, workload, sink)
	if cerr := sink.Close(); err == nil && cerr != nil {
		log.WithError(cerr).Warn("closing log")
	}
	if err != nil {
		return nil, err
	}

	out := &Outcome{ExitCode: code}
	out.Stats, out.PostErr = kmsgfmt.NormalizeFile(logPath, opts.Vocab, &kmsgfmt.Options{
		WarmupBatch: opts.WarmupBatch,
		Warn:        warnf(log),
	})
	if out.PostErr != nil {
		log.WithError(out.PostErr).Error("post-processing failed")
		return out, nil
	}
	if fi, err := os.Stat(logPath); err == nil {
		log.WithField("size", humanize.Bytes(uint64(fi.Size()))).Infof("normalized: %v", out.Stats)
	}

	an, err := Analyze([]string{logPath}, true, opts.Vocab, opts.WarmupBatch, log)
	if err != nil {
		out.PostErr = err
		log.WithError(err).Error("extraction failed")
		return out, nil
	}
	out.Report = an.Report

	if opts.DB != nil {
		if err := Archive(ctx, opts.DB, db.RunInfo{
			Workload: workload,
			LogPath:  logPath,
			ExitCode: code,
			Started:  started,
		}, an.Report); err != nil {
			out.PostErr = err
			log.WithError(err).Error("archiving report")
		}
	}
	return out, nil
}

// Archive stores rep in d as a new run described by info.
func Archive(ctx context.Context, d *db.DB, info db.RunInfo, rep *benchseries.Report) error {
	run, err := d.NewRun(ctx, info)
	if err != nil {
		return fmt.Errorf("archiving run: %w", err)
	}
	if err := run.InsertReport(ctx, rep); err != nil {
		return fmt.Errorf("archiving run %d: %w", run.ID, err)
	}
	return nil
}

// An Analysis is the result of extracting series from kernel logs.
type Analysis struct {
	Dataset *benchseries.Dataset
	Report  *benchseries.Report
	Stats   kmsgfmt.Stats // summed over all logs
}

// Analyze extracts the series in paths and builds their report. Each
// log gets its own warmup accumulator; logs that are already
// normalized have had their warmup samples removed and get none. A
// measurement that appears twice, in one log or across logs, is a
// *benchseries.DuplicateError.
func Analyze(paths []string, normalized bool, vocab *family.Vocabulary, warmupBatch int, log logrus.FieldLogger) (*Analysis, error) {
	b := benchseries.NewBuilder(vocab.Families(), &benchseries.BuilderOptions{Warn: warnf(log)})
	var total kmsgfmt.Stats
	for _, path := range paths {
		batch := warmupBatch
		if batch == 0 {
			batch = kmsgfmt.DefaultWarmupBatch
		}
		if normalized {
			batch = -1
		}
		stats, err := addFile(b, path, vocab, batch)
		if err != nil {
			return nil, err
		}
		total = addStats(total, stats)
	}
	ds := b.Dataset()
	if ds.Len() == 0 {
		return nil, errNoMeasurements
	}
	rep, err := benchseries.BuildReport(ds)
	if err != nil {
		return nil, err
	}
	return &Analysis{Dataset: ds, Report: rep, Stats: total}, nil
}

var errNoMeasurements = errors.New("no measurements found")

// IsNoMeasurements reports whether err means the logs held nothing
// from any known family.
func IsNoMeasurements(err error) bool {
	return errors.Is(err, errNoMeasurements)
}

func addFile(b *benchseries.Builder, path string, vocab *family.Vocabulary, warmupBatch int) (kmsgfmt.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return kmsgfmt.Stats{}, err
	}
	defer f.Close()
	r := kmsgfmt.NewReader(f, path, vocab, kmsgfmt.NewWarmup(warmupBatch))
	err = b.AddReader(r)
	return r.Stats(), err
}

func addStats(a, b kmsgfmt.Stats) kmsgfmt.Stats {
	a.Lines += b.Lines
	a.Irrelevant += b.Irrelevant
	a.Unmatched += b.Unmatched
	a.Malformed += b.Malformed
	a.Warmup += b.Warmup
	a.Records += b.Records
	return a
}

// warnf adapts log to the Warn hooks of kmsgfmt and benchseries,
// which pass newline-terminated formats.
func warnf(log logrus.FieldLogger) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		if n := len(msg); n > 0 && msg[n-1] == '\n' {
			msg = msg[:n-1]
		}
		log.Warn(msg)
	}
}
