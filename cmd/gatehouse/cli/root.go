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
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	rulesPath string
	verbose   bool
}

// Execute runs the gatehouse CLI command tree.
func Execute() error {
	cmd := NewRootCmd(context.Background(), os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		var ec interface{ ExitCode() int }
		if !errors.As(err, &ec) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return err
	}
	return nil
}

// ExitCode returns the process exit code implied by err.
// Non-nil errors default to exit code 1 unless they expose ExitCode().
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		code := ec.ExitCode()
		if code > 0 {
			return code
		}
	}

	return 1
}

// NewRootCmd builds the gatehouse root command.
func NewRootCmd(ctx context.Context, outWriter, errWriter io.Writer) *cobra.Command {
	opts := &rootOptions{}
	var showVersion bool
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := &cobra.Command{
		Use:           "gatehouse",
		Short:         "Command safety gateway for AI agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				return writeVersion(cmd.OutOrStdout())
			}
			return cmd.Help()
		},
	}
	cmd.SetContext(ctx)
	cmd.SetOut(outWriter)
	cmd.SetErr(errWriter)

	cmd.PersistentFlags().StringVar(&opts.rulesPath, "rules", "", "Path to an extra rules YAML file layered over the built-in set")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&showVersion, "version", false, "Print version information and exit")

	const (
		groupGateway = "gateway"
		groupRuntime = "runtime"
		groupAudit   = "audit"
	)
	cmd.AddGroup(
		&cobra.Group{ID: groupGateway, Title: "Gateway"},
		&cobra.Group{ID: groupRuntime, Title: "Runtime"},
		&cobra.Group{ID: groupAudit, Title: "Audit"},
	)

	versionCmd := newVersionCmd()
	checkCmd := newCheckCmd(opts)
	runCmd := newRunCmd(opts)
	rulesCmd := newRulesCmd(opts)
	serveCmd := newServeCmd(opts)
	watchCmd := newWatchCmd(opts)
	auditCmd := newAuditCmd(opts)

	checkCmd.GroupID = groupGateway
	runCmd.GroupID = groupGateway
	rulesCmd.GroupID = groupGateway

	serveCmd.GroupID = groupRuntime
	watchCmd.GroupID = groupRuntime

	auditCmd.GroupID = groupAudit

	cmd.AddCommand(versionCmd)
	cmd.AddCommand(checkCmd)
	cmd.AddCommand(runCmd)
	cmd.AddCommand(rulesCmd)
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(watchCmd)
	cmd.AddCommand(auditCmd)

	return cmd
}
