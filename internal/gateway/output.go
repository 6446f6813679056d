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

package gateway

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quarry/gatehouse/internal/execrun"
)

// OutputStrategy governs how much of an approved command's output is
// retained in the outcome. It never affects the danger verdict.
type OutputStrategy string

const (
	// StrategyFull keeps the whole output up to a large line cap. Used
	// for commands whose output is the result itself.
	StrategyFull OutputStrategy = "full"

	// StrategyMinimal keeps only a confirmation marker on success, and
	// full error detail on failure. Used for build/test/lint tools whose
	// value is pass/fail.
	StrategyMinimal OutputStrategy = "minimal"

	// StrategyDefault keeps a moderate trailing slice.
	StrategyDefault OutputStrategy = "default"
)

const (
	fullLineCap    = 1000
	defaultLineCap = 100
)

// fullOutputRe matches tools whose stdout is the answer: status,
// listing, search, and print/info commands.
var fullOutputRe = regexp.MustCompile(`(?i)^\s*(git\s+(status|diff|log|show|branch|remote|blame)|ls|ll|pwd|cat|head|tail|less|more|grep|rg|ag|find|fd|which|whereis|type|file|stat|wc|du|df|env|printenv|echo|date|whoami|hostname|uname|tree|curl|wget|dig|nslookup|ps|top|jq|yq)\b`)

// minimalOutputRe matches build/test/lint/compile tools.
var minimalOutputRe = regexp.MustCompile(`(?i)^\s*(go\s+(build|test|vet|install)|npm\s+(run|test|ci|install)|npx\s+\S+|yarn(\s+(run|test|install|build))?|pnpm\s+\S+|make|cmake|cargo\s+(build|test|check|clippy)|mvn|gradle|tsc|eslint|prettier|ruff|flake8|pylint|black|mypy|pytest|jest|vitest|rustc|gcc|g\+\+|clang|javac|dotnet\s+(build|test))\b`)

// ClassifyOutputStrategy picks the retention strategy for a command.
// It is a pure function of the command text.
func ClassifyOutputStrategy(command string) OutputStrategy {
	switch {
	case fullOutputRe.MatchString(command):
		return StrategyFull
	case minimalOutputRe.MatchString(command):
		return StrategyMinimal
	default:
		return StrategyDefault
	}
}

// ShapeOutput maps a raw process result into the outcome's output text
// according to the command's strategy. Failures always keep detail: a
// minimal-strategy command that failed reports like a full one, since
// the error text is exactly what the caller needs.
func ShapeOutput(command string, res execrun.Result) string {
	combined := combine(res.Stdout, res.Stderr)
	failed := res.ExitCode != 0 && !res.TimedOut && !res.IdleTimedOut

	switch ClassifyOutputStrategy(command) {
	case StrategyFull:
		return capLines(combined, fullLineCap)
	case StrategyMinimal:
		if failed {
			return capLines(combined, fullLineCap)
		}
		if strings.TrimSpace(combined) == "" {
			return "(completed successfully)"
		}
		return fmt.Sprintf("(completed successfully)\n%s", tailLines(combined, 5))
	default:
		return tailLines(combined, defaultLineCap)
	}
}

func combine(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	stderr = strings.TrimRight(stderr, "\n")
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}

// capLines keeps the first n lines and notes how many were dropped.
func capLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	kept := strings.Join(lines[:n], "\n")
	return fmt.Sprintf("%s\n... (%d more lines truncated)", kept, len(lines)-n)
}

// tailLines keeps the last n lines and notes how many were dropped.
func tailLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	kept := strings.Join(lines[len(lines)-n:], "\n")
	return fmt.Sprintf("... (%d earlier lines truncated)\n%s", len(lines)-n, kept)
}
