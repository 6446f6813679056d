// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package gateway

import (
	"fmt"
	"strings"
	"testing"

	"github.com/quarry/gatehouse/internal/execrun"
)

func TestClassifyOutputStrategy(t *testing.T) {
	tests := []struct {
		cmd  string
		want OutputStrategy
	}{
		{"git status", StrategyFull},
		{"git diff --stat", StrategyFull},
		{"ls -la src/", StrategyFull},
		{"cat README.md", StrategyFull},
		{"grep -rn TODO .", StrategyFull},
		{"pwd", StrategyFull},
		{"go test ./...", StrategyMinimal},
		{"npm run build", StrategyMinimal},
		{"make all", StrategyMinimal},
		{"cargo check", StrategyMinimal},
		{"eslint src/", StrategyMinimal},
		{"pytest tests/", StrategyMinimal},
		{"node server.js", StrategyDefault},
		{"./scripts/deploy.sh", StrategyDefault},
		{"python manage.py migrate", StrategyDefault},
	}
	for _, tt := range tests {
		if got := ClassifyOutputStrategy(tt.cmd); got != tt.want {
			t.Errorf("ClassifyOutputStrategy(%q) = %s, want %s", tt.cmd, got, tt.want)
		}
	}
}

func TestShapeOutput_MinimalSuccess(t *testing.T) {
	res := execrun.Result{Stdout: strings.Repeat("compiling...\n", 50)}
	got := ShapeOutput("go build ./...", res)
	if !strings.Contains(got, "(completed successfully)") {
		t.Errorf("minimal success output missing confirmation marker: %q", got)
	}
	if strings.Count(got, "\n") > 10 {
		t.Errorf("minimal success output too long: %d lines", strings.Count(got, "\n")+1)
	}
}

func TestShapeOutput_MinimalFailureKeepsDetail(t *testing.T) {
	res := execrun.Result{
		Stdout:   "src/main.go:10:2: undefined: foo\n",
		ExitCode: 1,
	}
	got := ShapeOutput("go build ./...", res)
	if !strings.Contains(got, "undefined: foo") {
		t.Errorf("failure detail dropped: %q", got)
	}
	if strings.Contains(got, "completed successfully") {
		t.Errorf("failure marked successful: %q", got)
	}
}

func TestShapeOutput_FullCapsLongOutput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < fullLineCap+500; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	got := ShapeOutput("cat big.log", execrun.Result{Stdout: b.String()})
	if !strings.Contains(got, "line 0") {
		t.Error("full strategy dropped the head of the output")
	}
	if !strings.Contains(got, "truncated") {
		t.Error("oversized output not marked truncated")
	}
}

func TestShapeOutput_DefaultKeepsTail(t *testing.T) {
	var b strings.Builder
	for i := 0; i < defaultLineCap+50; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	got := ShapeOutput("./run.sh", execrun.Result{Stdout: b.String()})
	if strings.Contains(got, "line 0\n") {
		t.Error("default strategy kept the head instead of the tail")
	}
	if !strings.Contains(got, fmt.Sprintf("line %d", defaultLineCap+49)) {
		t.Error("default strategy dropped the tail")
	}
}

func TestShapeOutput_CombinesStderr(t *testing.T) {
	res := execrun.Result{Stdout: "partial\n", Stderr: "warning: x\n", ExitCode: 0}
	got := ShapeOutput("./run.sh", res)
	if !strings.Contains(got, "partial") || !strings.Contains(got, "warning: x") {
		t.Errorf("stderr lost: %q", got)
	}
}

func TestShapeOutput_TimeoutNotTreatedAsFailure(t *testing.T) {
	res := execrun.Result{Stdout: "building...\n", ExitCode: 0, IdleTimedOut: true}
	got := ShapeOutput("npm run build", res)
	if !strings.Contains(got, "completed successfully") {
		t.Errorf("idle timeout shaped as failure: %q", got)
	}
}
