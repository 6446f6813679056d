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
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/quarry/gatehouse/internal/guard"
)

// blockedExitCode is returned when validation rejects a command, so
// callers can tell a gateway rejection apart from an ordinary failure.
const blockedExitCode = 3

// blockedError reports a command rejected by the gateway.
type blockedError struct {
	reason string
}

func (e *blockedError) Error() string { return e.reason }

func (e *blockedError) ExitCode() int { return blockedExitCode }

// newLogger builds the CLI logger honoring --verbose.
func newLogger(opts *rootOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadRules returns the built-in ruleset, layered with the --rules file
// when one is given.
func loadRules(opts *rootOptions) (guard.Ruleset, error) {
	rules := guard.DefaultRuleset()
	if opts.rulesPath == "" {
		return rules, nil
	}
	extra, err := guard.LoadFile(opts.rulesPath)
	if err != nil {
		return guard.Ruleset{}, fmt.Errorf("cli: %w", err)
	}
	return guard.Merge(rules, extra), nil
}

// expandHome replaces a leading ~ with the user home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cli: resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
