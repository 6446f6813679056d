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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quarry/gatehouse/internal/audit"
	"github.com/quarry/gatehouse/internal/gateway"
	"github.com/quarry/gatehouse/internal/workspace"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var taskID string
	var workspaceRoot string
	var auditPath string
	var maxTimeout time.Duration
	var idleTimeout time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [command...]",
		Short: "Validate a command and execute it if safe",
		Long: `Run sends one command through the full gateway pipeline: heredoc
stripping, danger classification, rm path containment, then execution.
Rejected commands never spawn a process and exit with code 3.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			logger := newLogger(opts)

			rules, err := loadRules(opts)
			if err != nil {
				return err
			}

			root := workspaceRoot
			if root == "" {
				cwd, wdErr := os.Getwd()
				if wdErr != nil {
					return fmt.Errorf("cli: resolve working directory: %w", wdErr)
				}
				root = cwd
			}

			var sink audit.Sink = audit.NopSink{}
			if auditPath != "" {
				resolved, pathErr := expandHome(auditPath)
				if pathErr != nil {
					return pathErr
				}
				jsonl, sinkErr := audit.NewJSONLSink(resolved, audit.WithLogger(logger))
				if sinkErr != nil {
					return fmt.Errorf("cli: open audit log: %w", sinkErr)
				}
				defer jsonl.Close()
				sink = jsonl
			}

			gw := gateway.New(gateway.Options{
				Rules:       &rules,
				Resolver:    workspace.Fixed(root),
				Audit:       sink,
				Logger:      logger,
				MaxTimeout:  maxTimeout,
				IdleTimeout: idleTimeout,
			})

			out := gw.Execute(cmd.Context(), taskID, command)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(out); encErr != nil {
					return fmt.Errorf("cli: encode outcome: %w", encErr)
				}
			} else if out.Approved {
				fmt.Fprint(cmd.OutOrStdout(), out.Output)
				if out.TimedOut || out.IdleTimedOut {
					fmt.Fprintf(cmd.ErrOrStderr(), "gatehouse: command still running (pid %d)\n", out.PID)
				}
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), formatBlockedMessage(command, out.Reason))
			}

			if !out.Approved {
				return &blockedError{reason: out.Reason}
			}
			if !out.Success {
				return fmt.Errorf("cli: command exited with code %d", out.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "cli", "Task id recorded with the decision")
	cmd.Flags().StringVar(&workspaceRoot, "workspace", "", "Workspace root for rm containment (default: current directory)")
	cmd.Flags().StringVar(&auditPath, "audit", "", "Append the decision to this JSONL audit log")
	cmd.Flags().DurationVar(&maxTimeout, "max-timeout", 0, "Hard wall-clock bound on execution (0 disables)")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "Bound on output silence during execution (0 disables)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full outcome as JSON")

	return cmd
}
