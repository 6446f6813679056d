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

package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// watchRules hot-reloads the extra rules file on change. A reload that
// fails to parse keeps the previous gateway: the daemon never degrades
// to a ruleset it only partially understood.
//
// The parent directory is watched rather than the file itself, because
// editors typically replace the file via rename.
func (d *Daemon) watchRules(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Error("daemon: rules watcher unavailable", "error", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(d.cfg.RulesPath)
	if err := watcher.Add(dir); err != nil {
		d.logger.Error("daemon: watch rules dir", "dir", dir, "error", err)
		return
	}

	target := filepath.Clean(d.cfg.RulesPath)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of events from a single save.
			pending = time.After(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("daemon: rules watcher error", "error", err)

		case <-pending:
			pending = nil
			gw, err := d.buildGateway()
			if err != nil {
				d.logger.Error("daemon: rules reload failed, keeping previous ruleset", "error", err)
				continue
			}
			d.gw.Store(gw)
			d.logger.Info("daemon: rules reloaded", "path", d.cfg.RulesPath)
		}
	}
}
