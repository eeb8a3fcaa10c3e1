// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package capture records the kernel log while a workload runs.
//
// A Capturer clears the kernel ring buffer, starts a follower (by
// default "dmesg -w -T") writing into a sink file, runs the workload
// through a shell, and then stops the follower: first with SIGTERM,
// then with SIGKILL if it does not exit in time.
//
// The delays around the workload are heuristics. The settle delay
// gives the follower time to attach before the workload can log, and
// the drain delay gives the kernel time to flush buffered messages.
// Neither is a synchronization point: a message logged very early or
// very late may be missed, and a message from an unrelated source
// during the run will be captured.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var (
	// ErrToolingUnavailable reports that a program needed for capture
	// is missing. It is not retried.
	ErrToolingUnavailable = errors.New("capture tooling unavailable")

	// ErrPermission reports insufficient privilege to read or clear
	// the kernel log. It is not retried.
	ErrPermission = errors.New("insufficient privilege for the kernel log")
)

// Exit codes reported for workloads that did not exit normally,
// following shell conventions.
const (
	ExitNotStarted = 127 // the workload could not be started
	exitSignalBase = 128 // plus the signal number
)

// Options configures a Capturer.
type Options struct {
	// Clear empties the kernel ring buffer before capture. Empty
	// skips clearing.
	Clear string
	// Follow prints the kernel log continuously with human readable
	// timestamps until terminated.
	Follow string
	// Shell runs the workload as Shell -c workload.
	Shell string

	Settle      time.Duration // wait after starting the follower
	Drain       time.Duration // wait after the workload exits
	StopTimeout time.Duration // wait after SIGTERM before SIGKILL

	// RequireRoot fails Preflight unless the effective uid is 0.
	RequireRoot bool

	// Stdout and Stderr receive the workload's output. Nil discards it.
	Stdout, Stderr io.Writer

	Log logrus.FieldLogger
}

// DefaultOptions returns the options used by the evaluation scripts.
func DefaultOptions() *Options {
	return &Options{
		Clear:       "dmesg -C",
		Follow:      "dmesg -w -T",
		Shell:       "sh",
		Settle:      500 * time.Millisecond,
		Drain:       time.Second,
		StopTimeout: 5 * time.Second,
		RequireRoot: true,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// A Capturer runs workloads under kernel log capture.
type Capturer struct {
	opts   Options
	clear  []string
	follow []string
	log    logrus.FieldLogger

	geteuid  func() int
	prepared bool // Prepare succeeded and Run has not consumed it
}

// New returns a Capturer for opts. Clear and Follow are split into
// words with shell quoting rules.
func New(opts *Options) (*Capturer, error) {
	c := &Capturer{opts: *opts, log: opts.Log, geteuid: unix.Geteuid}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.opts.Shell == "" {
		c.opts.Shell = "sh"
	}
	var err error
	if c.opts.Clear != "" {
		if c.clear, err = shlex.Split(c.opts.Clear); err != nil {
			return nil, fmt.Errorf("parsing clear command %q: %w", c.opts.Clear, err)
		}
	}
	if c.follow, err = shlex.Split(c.opts.Follow); err != nil {
		return nil, fmt.Errorf("parsing follow command %q: %w", c.opts.Follow, err)
	}
	if len(c.follow) == 0 {
		return nil, fmt.Errorf("empty follow command")
	}
	return c, nil
}

// Preflight checks that capture can run at all: every program is on
// PATH and, if required, the process has root privilege.
func (c *Capturer) Preflight() error {
	progs := []string{c.follow[0], c.opts.Shell}
	if len(c.clear) > 0 {
		progs = append(progs, c.clear[0])
	}
	for _, prog := range progs {
		if _, err := exec.LookPath(prog); err != nil {
			return fmt.Errorf("%w: %v", ErrToolingUnavailable, err)
		}
	}
	if c.opts.RequireRoot {
		if uid := c.geteuid(); uid != 0 {
			return fmt.Errorf("%w: running as uid %d, need root", ErrPermission, uid)
		}
	}
	return nil
}

// Prepare runs Preflight and clears the kernel log backlog. Callers
// that must not touch the sink unless capture can start call Prepare
// before opening it; otherwise Run prepares by itself.
func (c *Capturer) Prepare(ctx context.Context) error {
	if err := c.Preflight(); err != nil {
		return err
	}
	if err := c.clearBacklog(ctx); err != nil {
		return err
	}
	c.prepared = true
	return nil
}

// Run captures the kernel log into sink while workload runs and
// returns the workload's exit code. An error means the workload was
// never started. Failures after the workload has run are logged and
// do not change the exit code.
func (c *Capturer) Run(ctx context.Context, workload string, sink *os.File) (int, error) {
	if !c.prepared {
		if err := c.Prepare(ctx); err != nil {
			return 0, err
		}
	}
	c.prepared = false

	follower := exec.Command(c.follow[0], c.follow[1:]...)
	follower.Stdout = sink
	follower.Stderr = sink
	flog := c.log.WithField("follower", strings.Join(c.follow, " "))
	if err := follower.Start(); err != nil {
		return 0, fmt.Errorf("%w: starting follower: %v", ErrToolingUnavailable, err)
	}
	done := make(chan error, 1)
	go func() { done <- follower.Wait() }()
	flog.WithField("pid", follower.Process.Pid).Debug("follower started")

	sleep(ctx, c.opts.Settle)
	code := c.runWorkload(ctx, workload)
	sleep(ctx, c.opts.Drain)

	c.stop(follower, done, flog)
	return code, nil
}

func (c *Capturer) clearBacklog(ctx context.Context) error {
	if len(c.clear) == 0 {
		return nil
	}
	out, err := exec.CommandContext(ctx, c.clear[0], c.clear[1:]...).CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v: %s", ErrPermission, strings.Join(c.clear, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Capturer) runWorkload(ctx context.Context, workload string) int {
	cmd := exec.CommandContext(ctx, c.opts.Shell, "-c", workload)
	cmd.Stdout = c.opts.Stdout
	cmd.Stderr = c.opts.Stderr
	wlog := c.log.WithField("workload", workload)
	wlog.Info("running workload")

	start := time.Now()
	err := cmd.Run()
	code := exitCode(err)
	wlog = wlog.WithField("exit", code).WithField("elapsed", time.Since(start).Round(time.Millisecond))
	switch {
	case code == ExitNotStarted && cmd.ProcessState == nil:
		wlog.WithError(err).Error("workload did not start")
	case code != 0:
		wlog.Warn("workload failed")
	default:
		wlog.Info("workload finished")
	}
	return code
}

// exitCode converts the result of running a command into a shell-style
// exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return ExitNotStarted
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return exitSignalBase + int(ws.Signal())
	}
	return ee.ExitCode()
}

// stop terminates the follower, escalating to SIGKILL after
// StopTimeout.
func (c *Capturer) stop(follower *exec.Cmd, done <-chan error, flog logrus.FieldLogger) {
	if err := follower.Process.Signal(unix.SIGTERM); err != nil {
		flog.WithError(err).Debug("signaling follower")
	}
	timer := time.NewTimer(c.opts.StopTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		flog.WithError(err).Debug("follower stopped")
		return
	case <-timer.C:
	}
	flog.WithField("timeout", c.opts.StopTimeout).Warn("follower ignored SIGTERM, killing it")
	if err := follower.Process.Kill(); err != nil {
		flog.WithError(err).Warn("killing follower")
	}
	<-done
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// OpenSink creates or truncates the log at path and opens it for
// appending.
func OpenSink(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o644)
}
