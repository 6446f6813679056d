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

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadEventsFromOffset reads events from the JSONL log at path starting
// at a byte offset, returning the events and the new offset. The shared
// implementation behind the CLI log command and the watch TUI tailer.
//
// If the file shrank below offset it was truncated; reading restarts at
// the beginning. A trailing partial line is not consumed, so the offset
// stays before it until the line is complete.
func ReadEventsFromOffset(path string, offset int64) ([]Event, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("audit: stat %s: %w", path, err)
	}
	if offset > info.Size() {
		offset = 0
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("audit: seek %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	cursor := offset
	events := make([]Event, 0, 8)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, cursor, fmt.Errorf("audit: read line: %w", err)
		}
		if line == "" && errors.Is(err, io.EOF) {
			return events, cursor, nil
		}
		if !strings.HasSuffix(line, "\n") {
			return events, cursor, nil
		}

		cursor += int64(len(line))
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			var evt Event
			if unmarshalErr := json.Unmarshal([]byte(trimmed), &evt); unmarshalErr == nil {
				events = append(events, evt)
			}
		}
		if errors.Is(err, io.EOF) {
			return events, cursor, nil
		}
	}
}

// VerifyChain walks the whole log and checks every event's hash and its
// linkage to the previous event. It returns the number of verified
// events; the error names the first broken link.
func VerifyChain(path string) (int, error) {
	events, _, err := ReadEventsFromOffset(path, 0)
	if err != nil {
		return 0, err
	}

	prev := ""
	for i := range events {
		evt := events[i]
		if evt.PrevHash != prev {
			return i, fmt.Errorf("audit: event %s: prev_hash mismatch (chain broken at entry %d)", evt.ID, i)
		}
		ok, err := evt.VerifyHash()
		if err != nil {
			return i, err
		}
		if !ok {
			return i, fmt.Errorf("audit: event %s: hash mismatch (entry %d tampered)", evt.ID, i)
		}
		prev = evt.Hash
	}
	return len(events), nil
}
