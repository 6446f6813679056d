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

// Package sdk provides the public API for embedding the gatehouse
// command gateway into agent runtimes.
//
// The SDK validates shell commands before they run. A blocked command
// never spawns a process; callers receive *ErrBlocked with the reason
// taxonomy code and the rule that fired.
//
// Basic usage:
//
//	gate, err := sdk.New(sdk.Options{WorkspaceRoot: "/work/repo"})
//	out, err := gate.Execute(ctx, "task-1", "git push")
//	// If rejected: err is *ErrBlocked
package sdk

import "fmt"

// ErrBlocked is returned when the gateway rejects a command.
// No process was spawned for the command it reports.
type ErrBlocked struct {
	// Command is the raw command that was rejected.
	Command string

	// ReasonCode is the machine-readable rejection code
	// (e.g., BLOCKED_PATTERN, BLOCKED_PATH_OUTSIDE_WORKSPACE).
	ReasonCode string

	// Rule names the rule that fired (e.g., pattern:rm-wildcard).
	Rule string

	// Message is a human-readable reason for the rejection.
	Message string
}

// Error implements the error interface.
func (e *ErrBlocked) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("gatehouse: blocked %q by rule %q: %s", e.Command, e.Rule, e.Message)
	}
	return fmt.Sprintf("gatehouse: blocked %q: %s", e.Command, e.Message)
}

// ExitCode reports the process exit code implied by the rejection.
func (e *ErrBlocked) ExitCode() int { return 3 }
