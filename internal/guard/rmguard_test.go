// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package guard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quarry/gatehouse/internal/execrun"
)

// gitRunner fakes the repository check and records the request it saw.
type gitRunner struct {
	res    execrun.Result
	err    error
	called bool
	req    execrun.Request
}

func (r *gitRunner) Run(_ context.Context, req execrun.Request) (execrun.Result, error) {
	r.called = true
	r.req = req
	return r.res, r.err
}

func inGitRepo() *gitRunner {
	return &gitRunner{res: execrun.Result{Stdout: "true\n", ExitCode: 0}}
}

func TestRmGuard_NoRmWord(t *testing.T) {
	runner := inGitRepo()
	g := NewRmGuard(runner, nil)

	safe := []string{
		"ls -la",
		"rmdir empty",
		"echo 'rm -rf /'",
		"npm install",
	}
	for _, cmd := range safe {
		if v := g.Validate(context.Background(), cmd, "/test/root"); v.Dangerous {
			t.Errorf("Validate(%q) = dangerous (%s), want pass-through", cmd, v.Reason)
		}
	}
	if runner.called {
		t.Error("git check ran for commands without a standalone rm")
	}
}

func TestRmGuard_NoWorkspace(t *testing.T) {
	g := NewRmGuard(inGitRepo(), nil)

	v := g.Validate(context.Background(), "rm file.txt", "")
	if !v.Dangerous || v.Code != ReasonNoWorkspace {
		t.Fatalf("verdict = %+v, want %s", v, ReasonNoWorkspace)
	}
}

func TestRmGuard_GitCheck(t *testing.T) {
	tests := []struct {
		name   string
		runner *gitRunner
		want   ReasonCode
	}{
		{"inside work tree", inGitRepo(), ""},
		{"rev-parse says false", &gitRunner{res: execrun.Result{Stdout: "false\n"}}, ReasonNotGitRepo},
		{"rev-parse exits nonzero", &gitRunner{res: execrun.Result{Stderr: "fatal: not a git repository", ExitCode: 128}}, ReasonNotGitRepo},
		{"runner error", &gitRunner{err: errors.New("git not installed")}, ReasonNotGitRepo},
		{"check times out", &gitRunner{res: execrun.Result{TimedOut: true}}, ReasonNotGitRepo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRmGuard(tt.runner, nil)
			v := g.Validate(context.Background(), "rm file.txt", "/test/root")
			if v.Code != tt.want {
				t.Fatalf("code = %q, want %q (verdict %+v)", v.Code, tt.want, v)
			}
			if !tt.runner.called {
				t.Fatal("git check did not run")
			}
			if tt.runner.req.Dir != "/test/root" {
				t.Errorf("git check ran in %q, want workspace root", tt.runner.req.Dir)
			}
			if !strings.Contains(tt.runner.req.Command, "rev-parse --is-inside-work-tree") {
				t.Errorf("unexpected git check command %q", tt.runner.req.Command)
			}
		})
	}
}

func TestRmGuard_PathContainment(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		want    ReasonCode
		outside string // substring expected in the reason
	}{
		{"relative inside", "rm src/file.ts", "", ""},
		{"absolute inside", "rm /test/root/build/out.js", "", ""},
		{"flags skipped", "rm -rf /test/root/build", "", ""},
		{"quoted path with spaces inside", `rm 'my notes.txt'`, "", ""},
		{"no targets", "rm", "", ""},
		{"absolute outside", "rm /etc/passwd", ReasonPathOutsideWorkspace, "/etc/passwd"},
		{"dotdot escape", "rm ../outside.txt", ReasonPathOutsideWorkspace, "../outside.txt"},
		{"deep dotdot escape", "rm a/../../../etc/hosts", ReasonPathOutsideWorkspace, ""},
		{"tilde target", "rm ~/secrets.txt", ReasonPathOutsideWorkspace, ""},
		{"quoted path outside", `rm "/etc/my config"`, ReasonPathOutsideWorkspace, ""},
		{"second target outside", "rm a.txt /etc/passwd", ReasonPathOutsideWorkspace, "/etc/passwd"},
		{"chained rm outside", "ls && rm /etc/passwd", ReasonPathOutsideWorkspace, "/etc/passwd"},
		{"redirect target not an rm target", "rm a.txt > /dev/null", "", ""},
		{"pipe ends argument list", "rm a.txt | tee /etc/log", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRmGuard(inGitRepo(), nil)
			v := g.Validate(context.Background(), tt.cmd, "/test/root")
			if v.Code != tt.want {
				t.Fatalf("code = %q, want %q (verdict %+v)", v.Code, tt.want, v)
			}
			if tt.want == ReasonPathOutsideWorkspace {
				if !strings.Contains(v.Reason, "outside the workspace") {
					t.Errorf("reason %q missing containment explanation", v.Reason)
				}
				if tt.outside != "" && !strings.Contains(v.Reason, tt.outside) {
					t.Errorf("reason %q does not name offending path %q", v.Reason, tt.outside)
				}
			}
		})
	}
}

func TestRmGuard_RootContainsItself(t *testing.T) {
	g := NewRmGuard(inGitRepo(), nil)
	if v := g.Validate(context.Background(), "rm /test/root", "/test/root"); v.Dangerous {
		t.Errorf("root itself rejected: %s", v.Reason)
	}
}
