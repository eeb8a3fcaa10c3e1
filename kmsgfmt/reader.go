// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kmsgfmt reads benchmark measurements out of captured kernel
// log output.
//
// Kernel modules under test print one measurement per line, such as
//
//	[Mon Dec  1 19:21:45 2025] KML_CPU_batch_16, 14, 14
//
// interleaved with unrelated kernel messages. A Reader filters,
// strips, and parses these lines into Results, in input order, in a
// single pass.
package kmsgfmt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/laika-ae/kbench/family"
)

// A Reader reads measurement records from a kernel log.
//
// Its API is modeled on bufio.Scanner. The Reader owns the Result
// returned by Result and overwrites it on the next call to Scan; a
// caller should copy anything it needs to retain (see Result.Clone).
//
// A Reader consumes its input exactly once and cannot be restarted.
type Reader struct {
	s        *bufio.Scanner
	fileName string
	line     int
	err      error

	vocab  *family.Vocabulary
	warmup *Warmup

	rec    Record
	result Result
	stats  Stats
}

// Stats counts what a Reader did with each input line. Every line is
// counted exactly once in one of the drop counters or in Records.
type Stats struct {
	Lines      int // lines read
	Irrelevant int // lines without any recognized prefix
	Unmatched  int // payload did not start with a recognized prefix
	Malformed  int // no batch size or unparseable value
	Warmup     int // dropped as warmup samples
	Records    int // Results returned
}

func (s Stats) String() string {
	return fmt.Sprintf("%d lines: %d records, %d warmup, %d malformed, %d unmatched, %d irrelevant",
		s.Lines, s.Records, s.Warmup, s.Malformed, s.Unmatched, s.Irrelevant)
}

// A Record is a single record read from a kernel log. It is either a
// *Result or a *SyntaxError.
type Record interface {
	// Pos returns the file name and 1-based line number the record
	// was read from.
	Pos() (fileName string, line int)
}

var _ Record = (*Result)(nil)
var _ Record = (*SyntaxError)(nil)

// A SyntaxError reports a line that carried a recognized prefix but
// could not be parsed. Syntax errors are not fatal: the line is
// dropped and the Reader continues.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

var noResult = &SyntaxError{"", 0, "Reader.Scan has not been called"}

// maxLine bounds the length of a single log line.
const maxLine = 1 << 20

// NewReader returns a Reader that parses r using the prefixes in
// vocab. fileName is used in error messages only. warmup tracks which
// prefixes have already had their warmup sample dropped; if nil, a
// fresh accumulator for DefaultWarmupBatch is used.
func NewReader(r io.Reader, fileName string, vocab *family.Vocabulary, warmup *Warmup) *Reader {
	if fileName == "" {
		fileName = "<unknown>"
	}
	if warmup == nil {
		warmup = NewWarmup(DefaultWarmupBatch)
	}
	s := bufio.NewScanner(r)
	s.Buffer(nil, maxLine)
	return &Reader{s: s, fileName: fileName, vocab: vocab, warmup: warmup}
}

var batchRE = regexp.MustCompile(`_batch_(\d+)`)

// Scan advances the reader to the next record and reports whether a
// record was read. The caller should use Result to get it. If Scan
// reaches EOF or an I/O error occurs, it returns false, in which case
// the caller should use Err to check for errors.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.s.Scan() {
		r.line++
		r.stats.Lines++
		if rec := r.parseLine(r.s.Text()); rec != nil {
			r.rec = rec
			return true
		}
	}
	if err := r.s.Err(); err != nil {
		r.err = fmt.Errorf("%s:%d: %w", r.fileName, r.line, err)
	}
	r.rec = nil
	return false
}

// parseLine returns the record for line, or nil if the line is
// dropped silently.
func (r *Reader) parseLine(line string) Record {
	if !r.vocab.Relevant(line) {
		r.stats.Irrelevant++
		return nil
	}

	payload := stripTimestamp(line)

	entry, ok := r.vocab.Match(payload)
	if !ok {
		r.stats.Unmatched++
		return nil
	}

	m := batchRE.FindStringSubmatch(payload)
	if m == nil {
		return r.syntaxError("no batch size in %q", payload)
	}
	batch, err := strconv.Atoi(m[1])
	if err != nil || batch <= 0 {
		return r.syntaxError("invalid batch size %q", m[1])
	}

	if r.warmup.Drop(entry.Prefix, batch) {
		r.stats.Warmup++
		return nil
	}

	key, err := family.NewPointKey(entry.Key, batch)
	if err != nil {
		return r.syntaxError("%v", err)
	}
	value, extra, msg := parseValues(payload)
	if msg != "" {
		return r.syntaxError("%s in %q", msg, payload)
	}

	r.stats.Records++
	r.result = Result{
		Key:      key,
		Prefix:   entry.Prefix,
		Value:    value,
		Extra:    extra,
		Payload:  payload,
		fileName: r.fileName,
		line:     r.line,
	}
	return &r.result
}

func (r *Reader) syntaxError(format string, args ...interface{}) *SyntaxError {
	r.stats.Malformed++
	return &SyntaxError{r.fileName, r.line, fmt.Sprintf(format, args...)}
}

// stripTimestamp removes everything through the first "] ", which
// ends the timestamp that dmesg -T (or plain dmesg) prepends. Lines
// without one are used whole.
func stripTimestamp(line string) string {
	if i := strings.Index(line, "] "); i >= 0 {
		line = line[i+2:]
	}
	return strings.TrimSpace(line)
}

// parseValues parses the comma-separated values that follow the key
// in payload. The first is the measurement; any others are kept as
// extra. It returns a non-empty msg if the values are unusable.
func parseValues(payload string) (value float64, extra []float64, msg string) {
	fields := strings.Split(payload, ",")
	if len(fields) < 2 {
		return 0, nil, "missing measurement"
	}
	for i, f := range fields[1:] {
		f = strings.TrimSpace(f)
		if f == "" {
			return 0, nil, "empty measurement"
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, nil, fmt.Sprintf("parsing measurement %q", f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, nil, fmt.Sprintf("measurement %q out of range", f)
		}
		if i == 0 {
			value = v
		} else {
			extra = append(extra, v)
		}
	}
	return value, extra, ""
}

// Result returns the record that was just read by Scan. This is
// either a *Result or a *SyntaxError. Syntax errors are non-fatal,
// so the caller can continue to call Scan.
func (r *Reader) Result() Record {
	if r.rec == nil {
		return noResult
	}
	return r.rec
}

// Err returns the first non-EOF I/O error encountered by the Reader.
func (r *Reader) Err() error {
	return r.err
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}
