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
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quarry/gatehouse/internal/daemon"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var token string
	var workspaceRoot string
	var auditPath string
	var maxTimeout time.Duration
	var idleTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gatehouse HTTP service",
		Long: `Serve runs the long-lived gateway daemon. Agents submit commands to
POST /v1/execute, preview verdicts via POST /v1/check, and follow
decisions on the /v1/events websocket. Extra rules given with --rules
are hot-reloaded when the file changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(opts)

			if workspaceRoot != "" && !filepath.IsAbs(workspaceRoot) {
				return fmt.Errorf("serve: workspace root %q must be absolute", workspaceRoot)
			}

			resolvedAudit := auditPath
			if resolvedAudit != "" {
				expanded, err := expandHome(resolvedAudit)
				if err != nil {
					return err
				}
				if mkErr := os.MkdirAll(filepath.Dir(expanded), 0o700); mkErr != nil {
					return fmt.Errorf("serve: create audit directory: %w", mkErr)
				}
				resolvedAudit = expanded
			}

			if token == "" {
				token = os.Getenv("GATEHOUSE_TOKEN")
			}

			d, err := daemon.New(daemon.Config{
				Addr:          addr,
				Token:         token,
				RulesPath:     opts.rulesPath,
				WorkspaceRoot: workspaceRoot,
				AuditPath:     resolvedAudit,
				MaxTimeout:    maxTimeout,
				IdleTimeout:   idleTimeout,
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("cli: gatehouse daemon starting", "addr", addr)
			return d.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7466", "Listen address")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token required on API calls (default: $GATEHOUSE_TOKEN)")
	cmd.Flags().StringVar(&workspaceRoot, "workspace", "", "Default workspace root for tasks without a registered one")
	cmd.Flags().StringVar(&auditPath, "audit", "", "JSONL decision log path")
	cmd.Flags().DurationVar(&maxTimeout, "max-timeout", 10*time.Minute, "Hard wall-clock bound on each command")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 2*time.Minute, "Bound on output silence for each command")

	return cmd
}
