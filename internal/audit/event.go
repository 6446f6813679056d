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

// Package audit provides a tamper-evident trail of gateway decisions.
//
// Every command the gateway evaluates is recorded as an Event carrying a
// SHA-256 hash chain: each event's hash covers the previous event's hash,
// so rewriting history breaks every subsequent link.
package audit

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Event records one evaluated command, approved or rejected.
type Event struct {
	// ID is a ULID, time-ordered and globally unique.
	ID string `json:"id"`

	// Timestamp is when evaluation started (UTC).
	Timestamp time.Time `json:"timestamp"`

	// TaskID identifies the agent task the command belongs to.
	TaskID string `json:"task_id"`

	// Command is the raw command as submitted, never the scan text.
	Command string `json:"command"`

	// Decision is the gateway verdict for this command.
	Decision Decision `json:"decision"`

	// Response captures execution results. Nil for rejected commands,
	// which by definition never spawned a process.
	Response *CommandResponse `json:"response,omitempty"`

	// PrevHash is the hash of the preceding event, empty for the first.
	PrevHash string `json:"prev_hash"`

	// Hash is the SHA-256 over this event with the Hash field blanked,
	// prefixed by PrevHash. Set by ComputeHash.
	Hash string `json:"hash"`
}

// Decision is the verdict portion of an audit event.
type Decision struct {
	// Action is "approve" or "reject".
	Action string `json:"action"`

	// ReasonCode is the rejection class, empty for approvals.
	ReasonCode string `json:"reason_code,omitempty"`

	// Rule names the matching rule, empty for approvals.
	Rule string `json:"rule,omitempty"`

	// Message is the human-readable explanation.
	Message string `json:"message,omitempty"`

	// EvalTimeUS is the validation duration in microseconds.
	EvalTimeUS int64 `json:"evaluation_time_us"`
}

// CommandResponse captures the result of an approved command.
type CommandResponse struct {
	// ExitCode is the process exit code. Nil when the process was still
	// running at a timeout boundary.
	ExitCode *int `json:"exit_code,omitempty"`

	// DurationMS is how long the gateway waited on the process.
	DurationMS int64 `json:"duration_ms"`

	// TimedOut and IdleTimedOut mirror the runner's terminal state.
	TimedOut     bool `json:"timed_out,omitempty"`
	IdleTimedOut bool `json:"idle_timed_out,omitempty"`

	// PID is the spawned process id, for tracking runaway processes.
	PID int `json:"pid,omitempty"`
}

// ComputeHash fills in the event's Hash field:
//
//	hash(event_N) = SHA-256(prev_hash + json(event_N with hash blanked))
func (e *Event) ComputeHash() error {
	e.Hash = ""
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal event for hashing: %w", err)
	}

	h := sha256.Sum256(append([]byte(e.PrevHash), data...))
	e.Hash = "sha256:" + hex.EncodeToString(h[:])
	return nil
}

// VerifyHash reports whether the event's stored hash matches the value
// recomputed from its contents.
func (e *Event) VerifyHash() (bool, error) {
	stored := e.Hash
	if err := e.ComputeHash(); err != nil {
		return false, err
	}
	computed := e.Hash
	e.Hash = stored

	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1, nil
}
