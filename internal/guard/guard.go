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

// Package guard classifies shell commands as safe or dangerous before
// anything is executed.
//
// Two complementary mechanisms are evaluated, first match wins: an
// exact-command denylist catches single-word destructive commands without
// partial-token false positives ("format C:" matches, "reformat" does
// not), and an ordered pattern denylist catches argument-dependent danger.
// Commands chained with &&, ||, or ; are split and each segment classified
// recursively, so danger cannot hide behind an innocuous leading command.
// Pipes are never split points: a dangerous command appearing only after
// a | is caught solely by the pattern rules.
package guard

import (
	"fmt"
	"strings"

	"github.com/quarry/gatehouse/internal/scan"
)

// ReasonCode identifies why a command was rejected.
type ReasonCode string

const (
	// ReasonExactCommand means the command starts with a denylisted name.
	ReasonExactCommand ReasonCode = "BLOCKED_EXACT_COMMAND"

	// ReasonPattern means the command matched a dangerous pattern rule.
	ReasonPattern ReasonCode = "BLOCKED_PATTERN"

	// ReasonNoWorkspace means an rm command arrived without a configured
	// workspace root.
	ReasonNoWorkspace ReasonCode = "BLOCKED_NO_WORKSPACE"

	// ReasonNotGitRepo means the workspace root is not inside a git
	// repository, so rm has no undo safety net.
	ReasonNotGitRepo ReasonCode = "BLOCKED_NOT_GIT_REPO"

	// ReasonPathOutsideWorkspace means an rm target resolves outside the
	// workspace root.
	ReasonPathOutsideWorkspace ReasonCode = "BLOCKED_PATH_OUTSIDE_WORKSPACE"

	// ReasonExecutionError means the execution collaborator failed or
	// could not be invoked. It is the only code that originates outside
	// validation.
	ReasonExecutionError ReasonCode = "EXECUTION_ERROR"
)

// Verdict is the terminal result of classifying one command string.
// A dangerous verdict always short-circuits execution.
type Verdict struct {
	// Dangerous is true when the command must not run.
	Dangerous bool

	// Code identifies the rejection class. Empty for safe commands.
	Code ReasonCode

	// Reason is a human-readable explanation suitable for direct display.
	Reason string

	// Rule names the matching rule, for audit and debugging.
	Rule string
}

// Classifier evaluates commands against an immutable ruleset.
// It holds no mutable state: classifying the same text twice always
// yields the same verdict, and a single Classifier is safe for
// concurrent use.
type Classifier struct {
	rules Ruleset
}

// NewClassifier creates a classifier over the given ruleset.
func NewClassifier(rules Ruleset) *Classifier {
	return &Classifier{rules: rules}
}

// Classify decides whether scanText is dangerous. The caller is expected
// to pass heredoc-stripped scan text (scan.ExtractScanText); heredoc
// bodies must never reach classification.
func (c *Classifier) Classify(scanText string) Verdict {
	trimmed := strings.TrimSpace(scanText)
	if trimmed == "" {
		return Verdict{}
	}

	lower := strings.ToLower(trimmed)
	for _, name := range c.rules.Exact {
		if lower == name || strings.HasPrefix(lower, name+" ") {
			return Verdict{
				Dangerous: true,
				Code:      ReasonExactCommand,
				Reason:    fmt.Sprintf("command %q is blocked", name),
				Rule:      "exact:" + name,
			}
		}
	}

	for _, rule := range c.rules.Patterns {
		if rule.re.MatchString(trimmed) {
			return Verdict{
				Dangerous: true,
				Code:      ReasonPattern,
				Reason:    "command matches dangerous pattern: " + rule.Description,
				Rule:      "pattern:" + rule.Name,
			}
		}
	}

	// Danger must not be smuggled behind an innocuous leading command.
	if segments := scan.SplitChain(trimmed); len(segments) > 1 {
		for _, seg := range segments {
			if v := c.Classify(seg); v.Dangerous {
				return v
			}
		}
	}

	return Verdict{}
}
