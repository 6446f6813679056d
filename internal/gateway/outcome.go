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
	"time"

	"github.com/quarry/gatehouse/internal/guard"
)

// Outcome is the structured result of one gateway call: either a
// rejection produced entirely inside validation (no process spawned),
// or the shaped result of an executed command.
type Outcome struct {
	// ID is the ULID of the decision, shared with the audit event.
	ID string `json:"id"`

	// TaskID and Command echo the request. Command is always the raw
	// command as submitted.
	TaskID  string `json:"task_id"`
	Command string `json:"command"`

	// Approved is false when validation rejected the command. A false
	// value guarantees no process was spawned.
	Approved bool `json:"approved"`

	// Success is true only for approved commands that ran and exited
	// zero, or that hit a non-failing timeout boundary.
	Success bool `json:"success"`

	// ReasonCode and Reason are set on rejection and execution error.
	ReasonCode guard.ReasonCode `json:"reason_code,omitempty"`
	Reason     string           `json:"reason,omitempty"`

	// Rule names the rejecting rule, for audit correlation.
	Rule string `json:"rule,omitempty"`

	// Output is the shaped process output. Empty for rejections.
	Output string `json:"output,omitempty"`

	// ExitCode is the process exit code; meaningless unless Approved
	// and neither timeout flag is set.
	ExitCode int `json:"exit_code"`

	// TimedOut and IdleTimedOut report non-failing timeout boundaries.
	// The process may still be running; PID identifies it.
	TimedOut     bool `json:"timed_out,omitempty"`
	IdleTimedOut bool `json:"idle_timed_out,omitempty"`
	PID          int  `json:"pid,omitempty"`

	// Duration is the total gateway time, validation plus execution.
	Duration time.Duration `json:"duration_ns"`
}
