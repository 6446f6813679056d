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

package scan

import (
	"regexp"
	"strings"
)

// heredocRe matches a heredoc introducer and captures the delimiter word.
// Handles << EOF, <<EOF, <<-EOF, << 'EOF', << "EOF". The delimiter must
// start with a word character, so herestrings (<<<) and bare redirects
// never match.
var heredocRe = regexp.MustCompile(`<<-?[ \t]*(?:'(\w+)'|"(\w+)"|(\w+))`)

// ExtractScanText returns the parts of raw that safety checks must inspect:
// everything except heredoc bodies. Text following a heredoc terminator is
// retained (and scanned for further heredocs recursively), so a dangerous
// command after a terminator is still visible to the classifier.
//
//	Input:  "cat << 'EOF'\nrm -rf /\nEOF\nls"
//	Output: "cat ls"
//
// An unterminated heredoc swallows the rest of the string: only the text
// before the introducer is returned. Less text is scanned, but the shell
// itself refuses to run an unterminated heredoc, so nothing unchecked can
// execute.
func ExtractScanText(raw string) string {
	loc := heredocRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw
	}

	before := raw[:loc[0]]
	rest := raw[loc[1]:]

	delim := ""
	for _, g := range []int{2, 4, 6} {
		if loc[g] >= 0 {
			delim = raw[loc[g] : loc[g+1]]
			break
		}
	}
	if delim == "" {
		return raw
	}

	head := strings.TrimRight(before, " \t")
	after, ok := afterTerminator(rest, delim)
	if !ok {
		// Unterminated: the whole remainder is body.
		return head
	}

	tail := ExtractScanText(after)
	switch {
	case head == "":
		return tail
	case tail == "":
		return head
	default:
		return head + " " + tail
	}
}

// afterTerminator finds the terminator line for delim in rest and returns
// the text following it. The terminator must occupy a whole line: anchored
// at a line start, the delimiter word, optional trailing whitespace, then
// a newline or end of input. The <<- variant additionally permits leading
// tabs, which the same rule accepts via the leading-whitespace trim.
func afterTerminator(rest string, delim string) (string, bool) {
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	pos := nl + 1
	for {
		next := strings.IndexByte(rest[pos:], '\n')
		if next < 0 {
			// Last line without a trailing newline.
			if isTerminatorLine(rest[pos:], delim) {
				return "", true
			}
			return "", false
		}
		if isTerminatorLine(rest[pos:pos+next], delim) {
			return rest[pos+next+1:], true
		}
		pos += next + 1
	}
}

func isTerminatorLine(line, delim string) bool {
	return strings.TrimRight(strings.TrimLeft(line, "\t"), " \t") == delim
}
