// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quarry/gatehouse/internal/audit"
	"github.com/quarry/gatehouse/internal/execrun"
	"github.com/quarry/gatehouse/internal/guard"
	"github.com/quarry/gatehouse/internal/workspace"
)

// scriptRunner fakes both the git repository check and the final
// execution, recording every request it receives.
type scriptRunner struct {
	calls       []execrun.Request
	gitInRepo   bool
	res         execrun.Result
	err         error
	panicOnExec bool
}

func (r *scriptRunner) Run(_ context.Context, req execrun.Request) (execrun.Result, error) {
	r.calls = append(r.calls, req)
	if strings.Contains(req.Command, "rev-parse") {
		if r.gitInRepo {
			return execrun.Result{Stdout: "true\n"}, nil
		}
		return execrun.Result{ExitCode: 128, Stderr: "fatal: not a git repository"}, nil
	}
	if r.panicOnExec {
		panic("runner exploded")
	}
	return r.res, r.err
}

func (r *scriptRunner) execCalls() []execrun.Request {
	var out []execrun.Request
	for _, c := range r.calls {
		if !strings.Contains(c.Command, "rev-parse") {
			out = append(out, c)
		}
	}
	return out
}

type memSink struct {
	events []audit.Event
}

func (s *memSink) Write(e audit.Event) error { s.events = append(s.events, e); return nil }
func (s *memSink) Flush() error              { return nil }
func (s *memSink) Close() error              { return nil }

func newTestGateway(runner *scriptRunner, sink audit.Sink, root string) *Gateway {
	return New(Options{
		Resolver: workspace.Fixed(root),
		Runner:   runner,
		Audit:    sink,
	})
}

func TestExecute_RejectionSpawnsNothing(t *testing.T) {
	rejected := []string{
		"shutdown now",
		"rm -rf *",
		"pwd; shutdown now",
		"sudo make install",
	}
	for _, cmd := range rejected {
		runner := &scriptRunner{gitInRepo: true}
		g := newTestGateway(runner, &memSink{}, "/test/root")

		out := g.Execute(context.Background(), "t1", cmd)
		if out.Approved {
			t.Errorf("Execute(%q) approved, want rejection", cmd)
		}
		if len(runner.calls) != 0 {
			t.Errorf("Execute(%q) spawned a process on rejection: %+v", cmd, runner.calls)
		}
		if out.Reason == "" || out.ReasonCode == "" {
			t.Errorf("Execute(%q) rejection missing reason detail: %+v", cmd, out)
		}
	}
}

func TestExecute_RunsOriginalCommand(t *testing.T) {
	raw := "cat << 'EOF' > notes.txt\nrm -rf /\nEOF"
	runner := &scriptRunner{gitInRepo: true, res: execrun.Result{Stdout: "", PID: 42}}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	out := g.Execute(context.Background(), "t1", raw)
	if !out.Approved || !out.Success {
		t.Fatalf("outcome = %+v, want approved success", out)
	}

	execs := runner.execCalls()
	if len(execs) != 1 {
		t.Fatalf("got %d executions, want 1", len(execs))
	}
	if execs[0].Command != raw {
		t.Errorf("executed %q, want the original raw command", execs[0].Command)
	}
	if execs[0].Dir != "/test/root" {
		t.Errorf("executed in %q, want workspace root", execs[0].Dir)
	}
}

func TestExecute_RmPathOutsideWorkspace(t *testing.T) {
	runner := &scriptRunner{gitInRepo: true}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	out := g.Execute(context.Background(), "t1", "rm /etc/passwd")
	if out.Approved {
		t.Fatal("rm outside the workspace was approved")
	}
	if out.ReasonCode != guard.ReasonPathOutsideWorkspace {
		t.Errorf("code = %s, want %s", out.ReasonCode, guard.ReasonPathOutsideWorkspace)
	}
	if !strings.Contains(out.Reason, "outside the workspace") {
		t.Errorf("reason %q missing containment explanation", out.Reason)
	}

	// Only the read-only git check ran.
	if len(runner.calls) != 1 || !strings.Contains(runner.calls[0].Command, "rev-parse") {
		t.Errorf("unexpected process activity: %+v", runner.calls)
	}
}

func TestExecute_RmApprovedInsideWorkspace(t *testing.T) {
	runner := &scriptRunner{gitInRepo: true}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	out := g.Execute(context.Background(), "t1", "rm -rf src/")
	if !out.Approved {
		t.Fatalf("rm inside the workspace rejected: %s", out.Reason)
	}
	if len(runner.execCalls()) != 1 {
		t.Fatalf("command did not execute: %+v", runner.calls)
	}
}

func TestExecute_RmNotGitRepo(t *testing.T) {
	runner := &scriptRunner{gitInRepo: false}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	out := g.Execute(context.Background(), "t1", "rm file.txt")
	if out.ReasonCode != guard.ReasonNotGitRepo {
		t.Fatalf("code = %s, want %s", out.ReasonCode, guard.ReasonNotGitRepo)
	}
	if len(runner.execCalls()) != 0 {
		t.Fatal("rejected rm still executed")
	}
}

func TestExecute_RmNoWorkspace(t *testing.T) {
	runner := &scriptRunner{gitInRepo: true}
	g := newTestGateway(runner, &memSink{}, "")

	out := g.Execute(context.Background(), "t1", "rm file.txt")
	if out.ReasonCode != guard.ReasonNoWorkspace {
		t.Fatalf("code = %s, want %s", out.ReasonCode, guard.ReasonNoWorkspace)
	}
	if len(runner.calls) != 0 {
		t.Fatal("no-workspace rejection ran a process")
	}
}

func TestExecute_RunnerError(t *testing.T) {
	runner := &scriptRunner{gitInRepo: true, err: errors.New("shell missing")}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	out := g.Execute(context.Background(), "t1", "ls")
	if out.Success {
		t.Fatal("runner error reported as success")
	}
	if out.ReasonCode != guard.ReasonExecutionError {
		t.Errorf("code = %s, want %s", out.ReasonCode, guard.ReasonExecutionError)
	}
}

func TestExecute_PanicBecomesExecutionError(t *testing.T) {
	runner := &scriptRunner{gitInRepo: true, panicOnExec: true}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	out := g.Execute(context.Background(), "t1", "ls")
	if out.ReasonCode != guard.ReasonExecutionError {
		t.Fatalf("panic not normalized: %+v", out)
	}
	if strings.Contains(out.Reason, "exploded") {
		t.Errorf("reason %q leaks panic internals", out.Reason)
	}
}

func TestExecute_TimeoutsAreNotFailures(t *testing.T) {
	tests := []struct {
		name string
		res  execrun.Result
	}{
		{"idle timeout", execrun.Result{IdleTimedOut: true, PID: 7}},
		{"max timeout", execrun.Result{TimedOut: true, PID: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptRunner{gitInRepo: true, res: tt.res}
			g := newTestGateway(runner, &memSink{}, "/test/root")

			out := g.Execute(context.Background(), "t1", "npm run dev")
			if !out.Approved || !out.Success {
				t.Fatalf("timeout boundary reported as failure: %+v", out)
			}
			if out.PID != 7 {
				t.Errorf("PID = %d, want the still-running process id", out.PID)
			}
		})
	}
}

func TestExecute_AuditTrail(t *testing.T) {
	sink := &memSink{}
	runner := &scriptRunner{gitInRepo: true, res: execrun.Result{Stdout: "ok\n"}}
	g := newTestGateway(runner, sink, "/test/root")

	g.Execute(context.Background(), "t1", "ls")
	g.Execute(context.Background(), "t1", "shutdown now")

	if len(sink.events) != 2 {
		t.Fatalf("got %d audit events, want 2", len(sink.events))
	}
	approve, reject := sink.events[0], sink.events[1]
	if approve.Decision.Action != "approve" || approve.Response == nil {
		t.Errorf("approve event malformed: %+v", approve)
	}
	if reject.Decision.Action != "reject" || reject.Response != nil {
		t.Errorf("reject event malformed: %+v", reject)
	}
	if reject.Command != "shutdown now" {
		t.Errorf("audit recorded %q, want the raw command", reject.Command)
	}
}

func TestPreflight(t *testing.T) {
	runner := &scriptRunner{gitInRepo: true}
	g := newTestGateway(runner, &memSink{}, "/test/root")

	if v := g.Preflight(context.Background(), "t1", "ls"); v.Dangerous {
		t.Errorf("Preflight(ls) dangerous: %s", v.Reason)
	}
	if v := g.Preflight(context.Background(), "t1", "rm /etc/passwd"); !v.Dangerous {
		t.Error("Preflight missed rm outside workspace")
	}
	if len(runner.execCalls()) != 0 {
		t.Fatal("Preflight executed a command")
	}
}
