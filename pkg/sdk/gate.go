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

package sdk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quarry/gatehouse/internal/audit"
	"github.com/quarry/gatehouse/internal/execrun"
	"github.com/quarry/gatehouse/internal/gateway"
	"github.com/quarry/gatehouse/internal/guard"
	"github.com/quarry/gatehouse/internal/workspace"
)

// Options configures a Gate.
type Options struct {
	// RulesPath optionally points to a YAML file of extra rules layered
	// over the built-in set.
	RulesPath string

	// WorkspaceRoot is the directory commands run in and the boundary
	// for rm path containment. Empty means rm commands are rejected.
	WorkspaceRoot string

	// AuditPath, when non-empty, appends every decision to a JSONL
	// hash-chained log at this path.
	AuditPath string

	// Runner overrides the execution primitive. Nil means the local
	// shell runner.
	Runner execrun.Runner

	// MaxTimeout and IdleTimeout bound command execution. Zero disables
	// the respective bound.
	MaxTimeout  time.Duration
	IdleTimeout time.Duration

	Logger *slog.Logger
}

// CommandFunc executes a shell command and returns its output.
// Runtimes wrap their own executor with Gate.Wrap to get validation.
type CommandFunc func(ctx context.Context, command string) (string, error)

// Gate validates commands before execution. A single Gate is safe for
// concurrent use.
type Gate struct {
	gw     *gateway.Gateway
	sink   audit.Sink
	logger *slog.Logger
}

// New creates a Gate from opts.
func New(opts Options) (*Gate, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules := guard.DefaultRuleset()
	if opts.RulesPath != "" {
		extra, err := guard.LoadFile(opts.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("sdk: load rules: %w", err)
		}
		rules = guard.Merge(rules, extra)
	}

	var sink audit.Sink = audit.NopSink{}
	if opts.AuditPath != "" {
		jsonl, err := audit.NewJSONLSink(opts.AuditPath, audit.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("sdk: open audit log: %w", err)
		}
		sink = jsonl
	}

	gw := gateway.New(gateway.Options{
		Rules:       &rules,
		Resolver:    workspace.Fixed(opts.WorkspaceRoot),
		Runner:      opts.Runner,
		Audit:       sink,
		Logger:      logger,
		MaxTimeout:  opts.MaxTimeout,
		IdleTimeout: opts.IdleTimeout,
	})

	return &Gate{gw: gw, sink: sink, logger: logger}, nil
}

// Execute validates command and runs it if safe. Rejections return
// *ErrBlocked and spawn nothing; the returned Outcome carries the full
// decision either way.
func (g *Gate) Execute(ctx context.Context, taskID, command string) (gateway.Outcome, error) {
	out := g.gw.Execute(ctx, taskID, command)
	if !out.Approved {
		return out, &ErrBlocked{
			Command:    command,
			ReasonCode: string(out.ReasonCode),
			Rule:       out.Rule,
			Message:    out.Reason,
		}
	}
	return out, nil
}

// Preflight checks whether a command would be blocked without executing
// it. Agents can use this to plan around restrictions before attempting
// a command.
func (g *Gate) Preflight(ctx context.Context, taskID, command string) PreflightResult {
	verdict := g.gw.Preflight(ctx, taskID, command)
	return PreflightResult{
		Allowed:    !verdict.Dangerous,
		ReasonCode: string(verdict.Code),
		Message:    verdict.Reason,
		Rule:       verdict.Rule,
	}
}

// Wrap returns a validation-enforced wrapper around a runtime's own
// command executor. Blocked commands return *ErrBlocked without fn
// being called.
func (g *Gate) Wrap(taskID string, fn CommandFunc) CommandFunc {
	return func(ctx context.Context, command string) (string, error) {
		start := time.Now()
		verdict := g.gw.Preflight(ctx, taskID, command)

		g.logger.Info("sdk: command evaluated",
			"task", taskID,
			"dangerous", verdict.Dangerous,
			"rule", verdict.Rule,
			"eval_duration", time.Since(start),
		)

		if verdict.Dangerous {
			return "", &ErrBlocked{
				Command:    command,
				ReasonCode: string(verdict.Code),
				Rule:       verdict.Rule,
				Message:    verdict.Reason,
			}
		}
		return fn(ctx, command)
	}
}

// PreflightResult is the outcome of a validation-only check.
type PreflightResult struct {
	// Allowed is true if the command would proceed to execution.
	Allowed bool

	// ReasonCode is the rejection code; empty when allowed.
	ReasonCode string

	// Message is the human-readable reason from the firing rule.
	Message string

	// Rule names the rule that fired; empty when allowed.
	Rule string
}

// Close flushes and closes the audit log.
func (g *Gate) Close() error {
	return g.sink.Close()
}
