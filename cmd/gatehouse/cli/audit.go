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

package cli

import (
	"fmt"

	"github.com/quarry/gatehouse/internal/audit"
	"github.com/spf13/cobra"
)

func newAuditCmd(_ *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Decision log inspection commands",
	}

	cmd.AddCommand(newAuditTailCmd())
	cmd.AddCommand(newAuditVerifyCmd())

	return cmd
}

func newAuditTailCmd() *cobra.Command {
	var auditFile string
	var lines int

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lines <= 0 {
				return fmt.Errorf("audit: --lines must be > 0")
			}

			resolved, err := expandHome(auditFile)
			if err != nil {
				return err
			}

			events, _, err := audit.ReadEventsFromOffset(resolved, 0)
			if err != nil {
				return fmt.Errorf("audit: read decision log: %w", err)
			}

			start := max(0, len(events)-lines)
			for _, event := range events[start:] {
				line := fmt.Sprintf("%s  %-7s %-12s %q",
					event.Timestamp.Format("15:04:05"),
					event.Decision.Action,
					event.TaskID,
					event.Command,
				)
				if event.Decision.Rule != "" {
					line += "  [" + event.Decision.Rule + "]"
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return fmt.Errorf("audit: write tail output: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&auditFile, "audit", "~/.gatehouse/decisions.jsonl", "JSONL decision log path")
	cmd.Flags().IntVar(&lines, "lines", 20, "Number of decisions to print")

	return cmd
}

func newAuditVerifyCmd() *cobra.Command {
	var auditFile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the decision log hash chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := expandHome(auditFile)
			if err != nil {
				return err
			}

			count, err := audit.VerifyChain(resolved)
			if err != nil {
				return fmt.Errorf("audit: %w", err)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "✓ Chain intact: %d events verified\n", count); err != nil {
				return fmt.Errorf("audit: write verify output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&auditFile, "audit", "~/.gatehouse/decisions.jsonl", "JSONL decision log path")

	return cmd
}
