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

// Package watch provides the live terminal view of gateway decisions.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quarry/gatehouse/internal/audit"
)

const defaultTailPoll = 250 * time.Millisecond

type tailerEvent struct {
	event audit.Event
	err   error
}

// fileTailer follows the decision log, surviving truncation and
// recreation. fsnotify provides low-latency wakeups; a slow poll backs
// it up on filesystems with unreliable events.
type fileTailer struct {
	path       string
	newWatcher func() (*fsnotify.Watcher, error)
	pollEvery  time.Duration
}

func newFileTailer(path string) *fileTailer {
	return &fileTailer{
		path:       path,
		newWatcher: fsnotify.NewWatcher,
		pollEvery:  defaultTailPoll,
	}
}

func (t *fileTailer) start(ctx context.Context) <-chan tailerEvent {
	out := make(chan tailerEvent, 128)

	go func() {
		defer close(out)
		if strings.TrimSpace(t.path) == "" {
			out <- tailerEvent{err: errors.New("watch: decision log path is empty")}
			return
		}

		watcher, err := t.newWatcher()
		if err != nil {
			out <- tailerEvent{err: fmt.Errorf("watch: create file watcher: %w", err)}
			return
		}
		defer watcher.Close()

		// Watch the parent: the log may not exist yet, and saves often
		// arrive as rename-and-replace.
		dir := filepath.Dir(t.path)
		if err := watcher.Add(dir); err != nil {
			out <- tailerEvent{err: fmt.Errorf("watch: watch parent directory %s: %w", dir, err)}
			return
		}
		_ = watcher.Add(t.path)

		offset := t.publishAvailable(out, 0)

		ticker := time.NewTicker(t.pollEvery)
		defer ticker.Stop()

		target := filepath.Clean(t.path)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				offset = t.publishAvailable(out, offset)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Has(fsnotify.Create) {
					_ = watcher.Add(t.path)
					offset = 0
				}
				if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
					offset = 0
					continue
				}
				if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) {
					offset = t.publishAvailable(out, offset)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					continue
				}
				out <- tailerEvent{err: fmt.Errorf("watch: watcher error: %w", err)}
			}
		}
	}()

	return out
}

func (t *fileTailer) publishAvailable(out chan<- tailerEvent, offset int64) int64 {
	newEvents, newOffset, err := audit.ReadEventsFromOffset(t.path, offset)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		out <- tailerEvent{err: err}
		return offset
	}

	for _, event := range newEvents {
		out <- tailerEvent{event: event}
	}
	return newOffset
}
