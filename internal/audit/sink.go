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

package audit

import "log/slog"

// Sink writes tamper-evident decision events to a persistent store.
type Sink interface {
	Write(event Event) error
	Flush() error
	Close() error
}

const defaultFsync = true

// SinkOption configures a Sink implementation.
type SinkOption func(*sinkConfig)

type sinkConfig struct {
	fsync  bool
	logger *slog.Logger
}

func defaultSinkConfig() sinkConfig {
	return sinkConfig{fsync: defaultFsync}
}

// WithFsync configures whether writes call fsync before returning.
func WithFsync(enabled bool) SinkOption {
	return func(cfg *sinkConfig) {
		cfg.fsync = enabled
	}
}

// WithLogger configures the logger for audit operations.
// Defaults to slog.Default() if not set.
func WithLogger(logger *slog.Logger) SinkOption {
	return func(cfg *sinkConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// NopSink discards events. Used when auditing is disabled.
type NopSink struct{}

func (NopSink) Write(Event) error { return nil }
func (NopSink) Flush() error      { return nil }
func (NopSink) Close() error      { return nil }
