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

// Package daemon runs the gatehouse HTTP service: agents submit
// commands to /v1/execute, the gateway validates and runs them, and
// every decision is streamed to websocket subscribers and recorded in
// the audit log.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/quarry/gatehouse/internal/audit"
	"github.com/quarry/gatehouse/internal/execrun"
	"github.com/quarry/gatehouse/internal/gateway"
	"github.com/quarry/gatehouse/internal/guard"
	"github.com/quarry/gatehouse/internal/workspace"
)

// Config holds the daemon configuration.
type Config struct {
	// Addr is the listen address (e.g., 127.0.0.1:7466).
	Addr string

	// Token, when non-empty, requires Bearer auth on every endpoint
	// except /v1/healthz.
	Token string

	// RulesPath optionally points to a YAML file of extra rules layered
	// after the built-in set. The file is hot-reloaded on change.
	RulesPath string

	// WorkspaceRoot is the default workspace root for tasks that have
	// not registered their own.
	WorkspaceRoot string

	// AuditPath is the JSONL decision log. Empty disables auditing.
	AuditPath string

	// Runner overrides the execution primitive. Nil means the local
	// shell runner; tests inject fakes here.
	Runner execrun.Runner

	// MaxTimeout and IdleTimeout bound command execution.
	MaxTimeout  time.Duration
	IdleTimeout time.Duration

	Logger *slog.Logger
}

// Daemon is the long-running gatehouse service.
type Daemon struct {
	cfg      Config
	logger   *slog.Logger
	sink     audit.Sink
	resolver *workspace.StaticResolver
	gw       atomic.Pointer[gateway.Gateway]
	hub      *hub
	started  time.Time
}

// New creates a daemon, loading rules and opening the audit sink.
func New(cfg Config) (*Daemon, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7466"
	}

	var sink audit.Sink = audit.NopSink{}
	if cfg.AuditPath != "" {
		s, err := audit.NewJSONLSink(cfg.AuditPath, audit.WithLogger(cfg.Logger))
		if err != nil {
			return nil, fmt.Errorf("daemon: open audit sink: %w", err)
		}
		sink = s
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   cfg.Logger,
		sink:     sink,
		resolver: workspace.NewStaticResolver(nil),
		hub:      newHub(cfg.Logger),
	}

	gw, err := d.buildGateway()
	if err != nil {
		sink.Close()
		return nil, err
	}
	d.gw.Store(gw)
	return d, nil
}

// buildGateway assembles a gateway from the current config and rules
// file. Called at startup and again on every rules reload.
func (d *Daemon) buildGateway() (*gateway.Gateway, error) {
	rules := guard.DefaultRuleset()
	if d.cfg.RulesPath != "" {
		extra, err := guard.LoadFile(d.cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("daemon: %w", err)
		}
		rules = guard.Merge(rules, extra)
	}

	return gateway.New(gateway.Options{
		Rules:       &rules,
		Resolver:    d.workspaceResolver(),
		Runner:      d.cfg.Runner,
		Audit:       d.sink,
		Logger:      d.logger,
		MaxTimeout:  d.cfg.MaxTimeout,
		IdleTimeout: d.cfg.IdleTimeout,
	}), nil
}

// workspaceResolver checks per-task registrations first and falls back
// to the configured default root.
func (d *Daemon) workspaceResolver() workspace.Resolver {
	return workspace.ResolverFunc(func(taskID string) (string, bool) {
		if root, ok := d.resolver.WorkspaceRoot(taskID); ok {
			return root, true
		}
		if d.cfg.WorkspaceRoot != "" {
			return d.cfg.WorkspaceRoot, true
		}
		return "", false
	})
}

// Run serves HTTP until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()

	srv := &http.Server{
		Addr:              d.cfg.Addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if d.cfg.RulesPath != "" {
		go d.watchRules(ctx)
	}
	go d.trackUptime(ctx)

	errC := make(chan error, 1)
	go func() {
		d.logger.Info("daemon: listening", "addr", d.cfg.Addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("daemon: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("daemon: shutdown: %w", err)
	}
	return nil
}

func (d *Daemon) trackUptime(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gateway.SetUptime(time.Since(d.started))
		}
	}
}

// Close releases the audit sink and disconnects stream subscribers.
func (d *Daemon) Close() error {
	d.hub.closeAll()
	return d.sink.Close()
}
