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

// Package cli contains gatehouse command-line subcommands.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quarry/gatehouse/internal/gateway"
	"github.com/quarry/gatehouse/internal/guard"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var taskID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [command...]",
		Short: "Classify a command without executing it",
		Long: `Check runs the danger classifier over a command and reports the
verdict. Nothing is ever executed; the exit code is nonzero when the
command would be blocked.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")

			rules, err := loadRules(opts)
			if err != nil {
				return err
			}

			gw := gateway.New(gateway.Options{
				Rules:  &rules,
				Logger: newLogger(opts),
			})
			verdict := gw.Preflight(cmd.Context(), taskID, command)

			if asJSON {
				if err := writeVerdictJSON(cmd, verdict); err != nil {
					return err
				}
			} else if verdict.Dangerous {
				fmt.Fprintf(cmd.OutOrStdout(), "DANGEROUS  %s\n  rule: %s\n  %s\n", string(verdict.Code), verdict.Rule, verdict.Reason)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "SAFE")
			}

			if verdict.Dangerous {
				return &blockedError{reason: verdict.Reason}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "cli", "Task id recorded with the check")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the verdict as JSON")

	return cmd
}

func writeVerdictJSON(cmd *cobra.Command, verdict guard.Verdict) error {
	payload := struct {
		Dangerous  bool   `json:"dangerous"`
		ReasonCode string `json:"reason_code,omitempty"`
		Reason     string `json:"reason,omitempty"`
		Rule       string `json:"rule,omitempty"`
	}{
		Dangerous:  verdict.Dangerous,
		ReasonCode: string(verdict.Code),
		Reason:     verdict.Reason,
		Rule:       verdict.Rule,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("cli: encode verdict: %w", err)
	}
	return nil
}
