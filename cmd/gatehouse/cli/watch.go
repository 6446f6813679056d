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
	"path/filepath"

	"github.com/quarry/gatehouse/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(_ *rootOptions) *cobra.Command {
	var auditFile string
	var decision string
	var task string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live TUI feed of gateway decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := expandHome(auditFile)
			if err != nil {
				return err
			}

			return watch.Run(cmd.Context(), watch.Config{
				AuditFile: filepath.Clean(resolved),
				Decision:  decision,
				Task:      task,
				Out:       cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&auditFile, "audit", "~/.gatehouse/decisions.jsonl", "JSONL decision log to follow")
	cmd.Flags().StringVar(&decision, "decision", "", "Filter by decision (approve, reject, error)")
	cmd.Flags().StringVar(&task, "task", "", "Filter by task id")

	return cmd
}
