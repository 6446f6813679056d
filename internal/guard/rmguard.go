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

package guard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quarry/gatehouse/internal/execrun"
	"github.com/quarry/gatehouse/internal/scan"
	"github.com/quarry/gatehouse/internal/workspace"
)

const gitCheckTimeout = 5 * time.Second

// RmGuard validates rm commands against the workspace boundary. It runs
// after the pattern classifier, so wildcard and root-targeting rm forms
// are already rejected before paths reach it.
//
// The guard fires only when "rm" appears as a standalone word in the
// scan text. Embedded occurrences ("rmdir", "grep rm file") and quoted
// ones ("echo 'rm -rf /'") pass through untouched.
type RmGuard struct {
	runner execrun.Runner
	logger *slog.Logger
}

// NewRmGuard creates a guard that uses runner for the git repository
// check.
func NewRmGuard(runner execrun.Runner, logger *slog.Logger) *RmGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &RmGuard{runner: runner, logger: logger}
}

// Validate checks every rm target in scanText against the workspace
// boundary. Preconditions are checked in a fixed order: a workspace root
// must be configured, the root must be inside a git repository, and every
// target path must resolve inside the root. Path containment is purely
// lexical; the target does not need to exist.
func (g *RmGuard) Validate(ctx context.Context, scanText, root string) Verdict {
	if !scan.ContainsWord(scanText, "rm") {
		return Verdict{}
	}

	if root == "" {
		return Verdict{
			Dangerous: true,
			Code:      ReasonNoWorkspace,
			Reason:    "rm requires a configured workspace root and none is set for this task",
			Rule:      "rm:no-workspace",
		}
	}

	if v := g.checkGitRepo(ctx, root); v.Dangerous {
		return v
	}

	for _, seg := range scan.SplitChain(scanText) {
		for _, target := range rmTargets(seg) {
			if strings.HasPrefix(target, "~") {
				// Tilde expands to a home directory the guard cannot
				// resolve, so it cannot be proven inside the workspace.
				return pathOutsideVerdict(target, root)
			}
			resolved := workspace.Resolve(target, root)
			if !workspace.Contains(resolved, root) {
				return pathOutsideVerdict(target, root)
			}
		}
	}

	return Verdict{}
}

func pathOutsideVerdict(target, root string) Verdict {
	return Verdict{
		Dangerous: true,
		Code:      ReasonPathOutsideWorkspace,
		Reason:    fmt.Sprintf("rm target %q is outside the workspace root %q", target, root),
		Rule:      "rm:path-outside-workspace",
	}
}

// checkGitRepo verifies the workspace root sits inside a git work tree,
// so deleted files have at least a chance of recovery. The check is
// fail-closed: a timeout, runner error, or unexpected output all reject.
func (g *RmGuard) checkGitRepo(ctx context.Context, root string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, gitCheckTimeout)
	defer cancel()

	res, err := g.runner.Run(ctx, execrun.Request{
		Command:    "git rev-parse --is-inside-work-tree",
		Dir:        root,
		MaxTimeout: gitCheckTimeout,
	})
	if err != nil || res.TimedOut || res.IdleTimedOut {
		g.logger.Warn("guard: git repository check failed",
			"root", root,
			"err", err,
			"timed_out", res.TimedOut,
		)
		return notGitRepoVerdict(root)
	}
	if res.ExitCode != 0 || strings.TrimSpace(res.Stdout) != "true" {
		return notGitRepoVerdict(root)
	}
	return Verdict{}
}

func notGitRepoVerdict(root string) Verdict {
	return Verdict{
		Dangerous: true,
		Code:      ReasonNotGitRepo,
		Reason:    fmt.Sprintf("workspace root %q is not inside a git repository, so rm is not recoverable", root),
		Rule:      "rm:not-git-repo",
	}
}

// rmTargets extracts the path arguments of every rm invocation in one
// chain segment. Flags are skipped; a pipe ends the rm argument list.
// Tokens come from scan.Tokenize, so quoted paths with spaces arrive as
// single tokens with their quotes stripped.
func rmTargets(segment string) []string {
	tokens := scan.Tokenize(segment)
	var targets []string
	inRm := false
	for _, tok := range tokens {
		if tok == "|" {
			inRm = false
			continue
		}
		if !inRm {
			if strings.Trim(tok, "|&<>()") == "rm" {
				inRm = true
			}
			continue
		}
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if strings.ContainsAny(tok, "|<>") {
			// Redirections and inline pipes end the argument list.
			inRm = false
			continue
		}
		targets = append(targets, tok)
	}
	return targets
}
