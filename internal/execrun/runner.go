// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package execrun is the sole process-execution primitive behind the
// gateway. Validation never touches os/exec directly; it talks to the
// Runner interface so tests can substitute fakes.
package execrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Request describes a single process invocation.
type Request struct {
	// Command is the raw shell command line, run via `sh -c`.
	Command string

	// Dir is the working directory. Empty means the caller's cwd.
	Dir string

	// MaxTimeout bounds the total run time. Zero means no bound.
	MaxTimeout time.Duration

	// IdleTimeout bounds the time without any stdout/stderr activity.
	// Zero disables idle detection.
	IdleTimeout time.Duration
}

// Result is the terminal state of a process invocation.
//
// TimedOut and IdleTimedOut are not failures: both mean the runner stopped
// waiting while the process may still be alive, and PID lets the caller
// track it.
type Result struct {
	Stdout       string
	Stderr       string
	ExitCode     int
	TimedOut     bool
	IdleTimedOut bool
	PID          int
}

// Runner executes shell commands. Implementations must be safe for
// concurrent use.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, req Request) (Result, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// LocalRunner runs commands on the local machine through `sh -c`.
type LocalRunner struct {
	// Shell is the interpreter binary. Defaults to "sh".
	Shell string

	Logger *slog.Logger
}

// NewLocalRunner creates a LocalRunner with the given logger.
func NewLocalRunner(logger *slog.Logger) *LocalRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalRunner{Shell: "sh", Logger: logger}
}

// activityBuffer collects process output and records when it last grew.
type activityBuffer struct {
	mu   sync.Mutex
	buf  strings.Builder
	last time.Time
}

func (b *activityBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = time.Now()
	return b.buf.Write(p)
}

func (b *activityBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *activityBuffer) lastActivity() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Run executes req and waits for exit, max timeout, or idle timeout,
// whichever comes first. On either timeout the process is left running:
// the contract is "stop waiting", not "kill".
func (r *LocalRunner) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Command) == "" {
		return Result{}, fmt.Errorf("execrun: empty command")
	}

	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.Command(shell, "-c", req.Command)
	cmd.Dir = req.Dir

	stdout := &activityBuffer{last: time.Now()}
	stderr := &activityBuffer{last: time.Now()}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("execrun: start %q: %w", firstWord(req.Command), err)
	}
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var maxC <-chan time.Time
	if req.MaxTimeout > 0 {
		maxT := time.NewTimer(req.MaxTimeout)
		defer maxT.Stop()
		maxC = maxT.C
	}

	idlePoll := time.NewTicker(idlePollInterval(req.IdleTimeout))
	defer idlePoll.Stop()

	for {
		select {
		case err := <-done:
			res := Result{
				Stdout: stdout.String(),
				Stderr: stderr.String(),
				PID:    pid,
			}
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					res.ExitCode = exitErr.ExitCode()
					return res, nil
				}
				return res, fmt.Errorf("execrun: wait: %w", err)
			}
			return res, nil

		case <-maxC:
			r.Logger.Warn("execrun: max timeout reached, leaving process running",
				"pid", pid,
				"timeout", req.MaxTimeout,
			)
			return Result{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				TimedOut: true,
				PID:      pid,
			}, nil

		case <-idlePoll.C:
			if req.IdleTimeout <= 0 {
				continue
			}
			idle := time.Since(latest(stdout.lastActivity(), stderr.lastActivity()))
			if idle < req.IdleTimeout {
				continue
			}
			r.Logger.Info("execrun: idle timeout reached, leaving process running",
				"pid", pid,
				"idle", idle.Round(time.Millisecond),
			)
			return Result{
				Stdout:       stdout.String(),
				Stderr:       stderr.String(),
				IdleTimedOut: true,
				PID:          pid,
			}, nil

		case <-ctx.Done():
			// Caller cancellation before exit: stop the process, report the
			// context error.
			_ = cmd.Process.Kill()
			<-done
			return Result{
				Stdout: stdout.String(),
				Stderr: stderr.String(),
				PID:    pid,
			}, fmt.Errorf("execrun: canceled: %w", ctx.Err())
		}
	}
}

func idlePollInterval(idle time.Duration) time.Duration {
	if idle <= 0 {
		// Effectively disabled; tick rarely to keep the select simple.
		return time.Hour
	}
	if idle/4 < 10*time.Millisecond {
		return 10 * time.Millisecond
	}
	return idle / 4
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func firstWord(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
