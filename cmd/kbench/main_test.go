// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/laika-ae/kbench/benchseries"
	"github.com/laika-ae/kbench/family"
	"github.com/laika-ae/kbench/storage/db"
)

func fixture(name string) string {
	return filepath.Join("..", "..", "kmsgfmt", "testdata", name)
}

func runKbench(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	t.Logf("kbench %s", strings.Join(args, " "))
	code = kbench(context.Background(), &out, &errOut, args)
	return code, out.String(), errOut.String()
}

func TestUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"run", "true"},
		{"report"},
		{"families", "extra"},
		{"frobnicate"},
		{"-no-such-flag", "families"},
	} {
		code, _, stderr := runKbench(t, args...)
		if code != exitUsage {
			t.Errorf("kbench %q exit got %d want %d", args, code, exitUsage)
		}
		if !strings.Contains(stderr, "usage: kbench") {
			t.Errorf("kbench %q printed no usage:\n%s", args, stderr)
		}
	}
}

func TestFamilies(t *testing.T) {
	code, stdout, stderr := runKbench(t, "families")
	if code != 0 {
		t.Fatalf("exit got %d, stderr:\n%s", code, stderr)
	}
	fams, err := family.Load(strings.NewReader(stdout))
	if err != nil {
		t.Fatalf("families output does not load: %v", err)
	}
	if len(fams) != len(family.Builtin()) {
		t.Errorf("got %d families want %d", len(fams), len(family.Builtin()))
	}

	// The output is a valid -config file.
	config := filepath.Join(t.TempDir(), "families.yaml")
	if err := os.WriteFile(config, []byte(stdout), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ = runKbench(t, "-config", config, "-family", "MLLB", "families")
	if code != 0 {
		t.Fatalf("exit got %d", code)
	}
	fams, err = family.Load(strings.NewReader(stdout))
	if err != nil || len(fams) != 1 || fams[0].Name != "MLLB" {
		t.Errorf("-family MLLB got %v, %v", fams, err)
	}

	if code, _, stderr := runKbench(t, "-family", "nope", "families"); code != exitSetup || !strings.Contains(stderr, "unknown family") || !strings.Contains(stderr, "nope") {
		t.Errorf("unknown family got exit %d, stderr:\n%s", code, stderr)
	}
}

func TestReport(t *testing.T) {
	code, stdout, stderr := runKbench(t, "-family", "KML", "report", fixture("kml_raw.log"))
	if code != 0 {
		t.Fatalf("exit got %d, stderr:\n%s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "KML (us)\n") {
		t.Errorf("text report does not start with the family:\n%s", stdout)
	}
	if !strings.Contains(stdout, "iGPU vs dGPU: ALWAYS_A at batch 4096") {
		t.Errorf("text report has no crossover:\n%s", stdout)
	}
	// Two malformed lines in the fixture.
	if n := strings.Count(stderr, "level=warning"); n != 2 {
		t.Errorf("got %d warnings want 2:\n%s", n, stderr)
	}

	jsonPath := filepath.Join(t.TempDir(), "report.json")
	code, stdout, _ = runKbench(t, "-family", "KML", "-csv", "-json", jsonPath, "report", fixture("kml_raw.log"))
	if code != 0 {
		t.Fatalf("exit got %d", code)
	}
	if !strings.HasPrefix(stdout, "KML batch (us),CPU,") {
		t.Errorf("CSV report got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "\ngeomean,") {
		t.Errorf("CSV report has no summary rows:\n%s", stdout)
	}
	f, err := os.Open(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rep, err := benchseries.ReadJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	if fr := rep.Family("KML"); fr == nil || fr.Crossovers[0].Batch != 4096 {
		t.Errorf("JSON report got %+v", fr)
	}
}

func TestReportDuplicate(t *testing.T) {
	log := fixture("kml_normalized.log")
	code, _, stderr := runKbench(t, "-normalized", "report", log, log)
	if code != exitSetup {
		t.Errorf("exit got %d want %d", code, exitSetup)
	}
	if !strings.Contains(stderr, "duplicate measurement for KML/") {
		t.Errorf("stderr got:\n%s", stderr)
	}
}

// captureArgs returns flags that replay raw as the kernel log.
func captureArgs(t *testing.T, raw string) []string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh")
	}
	raw, err := filepath.Abs(raw)
	if err != nil {
		t.Fatal(err)
	}
	return []string{
		"-clear", "true",
		"-follow", `sh -c "cat '` + raw + `'; exec sleep 60"`,
		"-no-root",
		"-settle", "200ms",
		"-drain", "50ms",
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kbench.db")
	logPath := filepath.Join(dir, "kml.log")
	args := append(captureArgs(t, fixture("kml_raw.log")), "-family", "KML", "-db", "sqlite3:"+dbPath,
		"run", "echo workload; exit 5", logPath)

	code, stdout, stderr := runKbench(t, args...)
	if code != 5 {
		t.Fatalf("exit got %d want 5, stderr:\n%s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "workload\n") {
		t.Errorf("workload output missing:\n%s", stdout)
	}
	if !strings.Contains(stdout, "iGPU vs dGPU: ALWAYS_A at batch 4096") {
		t.Errorf("no report after the run:\n%s", stdout)
	}

	got, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(fixture("kml_normalized.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Errorf("log was not normalized:\n%s", got)
	}

	d, err := db.OpenSQL("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if n, err := d.CountRuns(context.Background()); err != nil || n != 1 {
		t.Errorf("CountRuns got %d, %v want 1", n, err)
	}
}

func TestRunSetupFailures(t *testing.T) {
	for _, tc := range []struct {
		name  string
		flags []string
		want  int
	}{
		{"missing follower", []string{"-follow", "kbench-no-such-dmesg -w"}, exitTooling},
		{"clear denied", []string{"-clear", "false"}, exitPermission},
		{"bad db", []string{"-db", "sqlite3"}, exitSetup},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			marker := filepath.Join(dir, "ran")
			args := append(captureArgs(t, fixture("kml_raw.log")), tc.flags...)
			args = append(args, "run", "touch "+marker, filepath.Join(dir, "kml.log"))
			code, _, stderr := runKbench(t, args...)
			if code != tc.want {
				t.Errorf("exit got %d want %d, stderr:\n%s", code, tc.want, stderr)
			}
			if _, err := os.Stat(marker); err == nil {
				t.Errorf("workload ran despite a setup failure")
			}
			if n := strings.Count(stderr, "level=error"); n != 1 {
				t.Errorf("got %d error lines want 1:\n%s", n, stderr)
			}
		})
	}
}
