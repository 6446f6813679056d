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

	"github.com/quarry/gatehouse/internal/guard"
	"github.com/spf13/cobra"
)

func newRulesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Ruleset utilities",
	}

	cmd.AddCommand(newRulesCheckCmd(opts))
	cmd.AddCommand(newRulesListCmd(opts))

	return cmd
}

func newRulesCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the extra rules file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.rulesPath == "" {
				return fmt.Errorf("rules: no --rules file given")
			}
			extra, err := guard.LoadFile(opts.rulesPath)
			if err != nil {
				return fmt.Errorf("rules: check failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ Rules valid: %d exact commands, %d patterns\n",
				len(extra.Exact), len(extra.Patterns))
			if err != nil {
				return fmt.Errorf("rules: write check output: %w", err)
			}
			return nil
		},
	}
}

func newRulesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective ruleset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := loadRules(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Exact commands:")
			for _, name := range rules.Exact {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Patterns:")
			for _, rule := range rules.Patterns {
				fmt.Fprintf(out, "  %-24s %s\n", rule.Name, rule.Description)
			}
			return nil
		},
	}
}
