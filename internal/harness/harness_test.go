// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/laika-ae/kbench/benchseries"
	"github.com/laika-ae/kbench/capture"
	"github.com/laika-ae/kbench/internal/diff"
	"github.com/laika-ae/kbench/kmsgfmt"
	"github.com/laika-ae/kbench/storage/db/dbtest"
	"github.com/sirupsen/logrus/hooks/test"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "kmsgfmt", "testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return path
}

// testOptions returns options whose follower replays raw into the log.
func testOptions(t *testing.T, raw string) *Options {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh")
	}
	opts, err := DefaultOptions()
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := test.NewNullLogger()
	opts.Log = logger
	opts.Capture = &capture.Options{
		Clear:       "true",
		Follow:      `sh -c "cat '` + raw + `'; exec sleep 60"`,
		Shell:       "sh",
		Settle:      200 * time.Millisecond,
		Drain:       50 * time.Millisecond,
		StopTimeout: 5 * time.Second,
	}
	return opts
}

func TestRun(t *testing.T) {
	opts := testOptions(t, fixture(t, "kml_raw.log"))
	opts.DB = dbtest.NewDB(t)
	logPath := filepath.Join(t.TempDir(), "kml.log")

	out, err := Run(context.Background(), opts, "exit 7", logPath)
	if err != nil {
		t.Fatalf("Run got err %v", err)
	}
	if out.ExitCode != 7 {
		t.Errorf("ExitCode got %d want 7", out.ExitCode)
	}
	if out.PostErr != nil {
		t.Fatalf("PostErr got %v", out.PostErr)
	}
	if out.Stats.Records != 12 || out.Stats.Warmup != 4 || out.Stats.Malformed != 2 {
		t.Errorf("Stats got %+v", out.Stats)
	}

	got, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(fixture(t, "kml_normalized.log"))
	if err != nil {
		t.Fatal(err)
	}
	if d := diff.Diff(string(want), string(got)); d != "" {
		t.Errorf("log was not normalized in place:\n%s", d)
	}

	c := out.Report.Family("KML").Crossovers[0]
	if c.Reason != benchseries.AlwaysA || c.Batch != 4096 {
		t.Errorf("crossover got %+v", c)
	}

	ctx := context.Background()
	if n, err := opts.DB.CountRuns(ctx); err != nil || n != 1 {
		t.Errorf("CountRuns got %d, %v want 1", n, err)
	}
	// Run IDs start at 1 in a fresh database.
	points, err := opts.DB.Points(ctx, 1, "KML")
	if err != nil {
		t.Fatal(err)
	}
	// 12 variant points, plus iGPU at batches 1, 2 and 16.
	if len(points) != 15 {
		t.Errorf("archived %d points want 15", len(points))
	}
}

func TestRunToolingUnavailable(t *testing.T) {
	opts := testOptions(t, fixture(t, "kml_raw.log"))
	opts.Capture.Follow = "kbench-no-such-dmesg -w -T"
	logPath := filepath.Join(t.TempDir(), "kml.log")
	if err := os.WriteFile(logPath, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), opts, "exit 0", logPath)
	if !errors.Is(err, capture.ErrToolingUnavailable) {
		t.Fatalf("Run got err %v want ErrToolingUnavailable", err)
	}
	got, _ := os.ReadFile(logPath)
	if string(got) != "previous run\n" {
		t.Errorf("log was modified by a run that never started: %q", got)
	}
}

func TestRunClearFails(t *testing.T) {
	opts := testOptions(t, fixture(t, "kml_raw.log"))
	opts.Capture.Clear = "false"
	logPath := filepath.Join(t.TempDir(), "kml.log")
	if err := os.WriteFile(logPath, []byte("previous capture\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), opts, "exit 0", logPath)
	if !errors.Is(err, capture.ErrPermission) {
		t.Fatalf("Run got err %v want ErrPermission", err)
	}
	got, _ := os.ReadFile(logPath)
	if string(got) != "previous capture\n" {
		t.Errorf("log was modified by a run whose clear step failed: %q", got)
	}
}

func TestRunPostProcessFailure(t *testing.T) {
	// A line longer than the reader accepts makes normalization fail.
	raw := "[1.0] KML_CPU_batch_1, 3\n" + strings.Repeat("x", 2<<20) + "\n"
	rawPath := filepath.Join(t.TempDir(), "raw.log")
	if err := os.WriteFile(rawPath, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := testOptions(t, rawPath)
	logPath := filepath.Join(t.TempDir(), "kml.log")

	out, err := Run(context.Background(), opts, "exit 3", logPath)
	if err != nil {
		t.Fatalf("Run got err %v", err)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode got %d want 3", out.ExitCode)
	}
	var pe *kmsgfmt.PostProcessError
	if !errors.As(out.PostErr, &pe) {
		t.Fatalf("PostErr got %v want *kmsgfmt.PostProcessError", out.PostErr)
	}
	if out.Report != nil {
		t.Errorf("Report is set after a failed post-processing")
	}
	got, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != raw {
		t.Errorf("raw capture was not preserved (%d bytes, want %d)", len(got), len(raw))
	}
}

func TestRunDuplicate(t *testing.T) {
	rawPath := filepath.Join(t.TempDir(), "raw.log")
	raw := "[1.0] KML_CPU_batch_64, 1\n[2.0] KML_CPU_batch_64, 2\n"
	if err := os.WriteFile(rawPath, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := testOptions(t, rawPath)
	out, err := Run(context.Background(), opts, "exit 0", filepath.Join(t.TempDir(), "kml.log"))
	if err != nil {
		t.Fatal(err)
	}
	var dup *benchseries.DuplicateError
	if !errors.As(out.PostErr, &dup) {
		t.Errorf("PostErr got %v want *benchseries.DuplicateError", out.PostErr)
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode got %d want 0", out.ExitCode)
	}
}

func TestAnalyze(t *testing.T) {
	opts := testOptions(t, "")
	logger, hook := test.NewNullLogger()

	an, err := Analyze([]string{fixture(t, "kml_raw.log")}, false, opts.Vocab, 0, logger)
	if err != nil {
		t.Fatal(err)
	}
	if an.Stats.Records != 12 {
		t.Errorf("Records got %d want 12", an.Stats.Records)
	}
	if n := len(hook.AllEntries()); n != 2 {
		t.Errorf("got %d warnings want 2", n)
	}

	// The normalized fixture has no warmup samples left; reading it
	// as raw would drop the real batch-16 measurements.
	an, err = Analyze([]string{fixture(t, "kml_normalized.log")}, true, opts.Vocab, 0, logger)
	if err != nil {
		t.Fatal(err)
	}
	if an.Stats.Records != 12 || an.Stats.Warmup != 0 {
		t.Errorf("normalized Stats got %+v", an.Stats)
	}

	// The same log twice duplicates every measurement.
	_, err = Analyze([]string{fixture(t, "kml_normalized.log"), fixture(t, "kml_normalized.log")}, true, opts.Vocab, 0, logger)
	var dup *benchseries.DuplicateError
	if !errors.As(err, &dup) {
		t.Errorf("Analyze of a repeated log got %v want *benchseries.DuplicateError", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.log")
	if err := os.WriteFile(empty, []byte("[0.1] nothing here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Analyze([]string{empty}, false, opts.Vocab, 0, logger); !IsNoMeasurements(err) {
		t.Errorf("Analyze of a log without measurements got %v", err)
	}
}
