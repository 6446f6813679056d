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

// Package gateway orchestrates the command safety pipeline: heredoc
// extraction, danger classification, rm path validation, execution, and
// output shaping.
//
// The central contract is the no-spawn guarantee: every rejection
// outcome is produced entirely inside validation, before any process
// exists. Execution always receives the original raw command; the
// heredoc-stripped scan text is a scanning aid, never a rewrite of what
// runs.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/quarry/gatehouse/internal/audit"
	"github.com/quarry/gatehouse/internal/execrun"
	"github.com/quarry/gatehouse/internal/guard"
	"github.com/quarry/gatehouse/internal/scan"
	"github.com/quarry/gatehouse/internal/workspace"
)

// Options configures a Gateway. Zero-value fields get safe defaults:
// the built-in ruleset, a resolver with no workspace roots, the local
// runner, and a no-op audit sink.
type Options struct {
	Rules    *guard.Ruleset
	Resolver workspace.Resolver
	Runner   execrun.Runner
	Audit    audit.Sink
	Logger   *slog.Logger

	// MaxTimeout and IdleTimeout are passed to the runner for the final
	// execution. Zero disables the respective bound.
	MaxTimeout  time.Duration
	IdleTimeout time.Duration
}

// Gateway validates and executes commands. Validation is stateless per
// call; a single Gateway is safe for concurrent use.
type Gateway struct {
	classifier  *guard.Classifier
	rm          *guard.RmGuard
	resolver    workspace.Resolver
	runner      execrun.Runner
	sink        audit.Sink
	logger      *slog.Logger
	maxTimeout  time.Duration
	idleTimeout time.Duration
}

// New creates a Gateway from opts.
func New(opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rules := guard.DefaultRuleset()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = workspace.Fixed("")
	}
	runner := opts.Runner
	if runner == nil {
		runner = execrun.NewLocalRunner(logger)
	}
	sink := opts.Audit
	if sink == nil {
		sink = audit.NopSink{}
	}

	return &Gateway{
		classifier:  guard.NewClassifier(rules),
		rm:          guard.NewRmGuard(runner, logger),
		resolver:    resolver,
		runner:      runner,
		sink:        sink,
		logger:      logger,
		maxTimeout:  opts.MaxTimeout,
		idleTimeout: opts.IdleTimeout,
	}
}

// Preflight validates command for taskID without executing anything.
// It runs the identical pipeline Execute runs before the spawn point.
func (g *Gateway) Preflight(ctx context.Context, taskID, command string) guard.Verdict {
	scanText := scan.ExtractScanText(command)
	if v := g.classifier.Classify(scanText); v.Dangerous {
		return v
	}
	root, _ := g.resolver.WorkspaceRoot(taskID)
	return g.rm.Validate(ctx, scanText, root)
}

// Execute validates command for taskID and, if approved, runs it in the
// task's workspace root. Rejections return before any process is
// spawned. A panic anywhere in orchestration is converted into an
// execution-error outcome rather than propagated.
func (g *Gateway) Execute(ctx context.Context, taskID, command string) (out Outcome) {
	start := time.Now()
	out = Outcome{
		ID:      audit.NewEventID(),
		TaskID:  taskID,
		Command: command,
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		g.logger.Error("gateway: recovered from panic", "panic", r, "task", taskID)
		out.Approved = false
		out.Success = false
		out.ReasonCode = guard.ReasonExecutionError
		out.Reason = "internal error while executing the command"
		out.Duration = time.Since(start)
		g.writeAudit(out, time.Since(start), nil)
	}()

	scanText := scan.ExtractScanText(command)
	root, _ := g.resolver.WorkspaceRoot(taskID)

	verdict := g.classifier.Classify(scanText)
	if !verdict.Dangerous {
		verdict = g.rm.Validate(ctx, scanText, root)
	}
	evalTime := time.Since(start)

	if verdict.Dangerous {
		out.ReasonCode = verdict.Code
		out.Reason = verdict.Reason
		out.Rule = verdict.Rule
		out.Duration = evalTime
		g.logger.Info("gateway: rejected",
			"task", taskID,
			"code", verdict.Code,
			"rule", verdict.Rule,
		)
		recordDecision("reject", verdict.Rule, evalTime)
		g.writeAudit(out, evalTime, nil)
		return out
	}

	out.Approved = true
	res, err := g.runner.Run(ctx, execrun.Request{
		Command:     command,
		Dir:         root,
		MaxTimeout:  g.maxTimeout,
		IdleTimeout: g.idleTimeout,
	})
	execTime := time.Since(start) - evalTime
	out.Duration = time.Since(start)

	if err != nil {
		out.ReasonCode = guard.ReasonExecutionError
		out.Reason = "command execution failed: " + err.Error()
		g.logger.Error("gateway: execution failed", "task", taskID, "error", err)
		recordDecision("error", "", evalTime)
		g.writeAudit(out, evalTime, nil)
		return out
	}

	out.Success = res.ExitCode == 0 || res.TimedOut || res.IdleTimedOut
	out.Output = ShapeOutput(command, res)
	out.ExitCode = res.ExitCode
	out.TimedOut = res.TimedOut
	out.IdleTimedOut = res.IdleTimedOut
	out.PID = res.PID

	g.logger.Info("gateway: executed",
		"task", taskID,
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"idle_timed_out", res.IdleTimedOut,
		"duration", execTime.Round(time.Millisecond),
	)
	recordDecision("approve", "", evalTime)
	recordExecution(execTime)
	g.writeAudit(out, evalTime, &res)
	return out
}

func (g *Gateway) writeAudit(out Outcome, evalTime time.Duration, res *execrun.Result) {
	action := "reject"
	switch {
	case out.ReasonCode == guard.ReasonExecutionError:
		action = "error"
	case out.Approved:
		action = "approve"
	}

	evt := audit.Event{
		ID:      out.ID,
		TaskID:  out.TaskID,
		Command: out.Command,
		Decision: audit.Decision{
			Action:     action,
			ReasonCode: string(out.ReasonCode),
			Rule:       out.Rule,
			Message:    out.Reason,
			EvalTimeUS: evalTime.Microseconds(),
		},
	}
	if res != nil {
		resp := &audit.CommandResponse{
			DurationMS:   (out.Duration - evalTime).Milliseconds(),
			TimedOut:     res.TimedOut,
			IdleTimedOut: res.IdleTimedOut,
			PID:          res.PID,
		}
		if !res.TimedOut && !res.IdleTimedOut {
			code := res.ExitCode
			resp.ExitCode = &code
		}
		evt.Response = resp
	}

	if err := g.sink.Write(evt); err != nil {
		g.logger.Error("gateway: audit write failed", "error", err)
	}
}
