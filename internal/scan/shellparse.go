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

// Package scan derives the text that safety checks actually inspect:
// heredoc-stripped scan text, chain segments, and quote-aware tokens.
// It is intentionally not a shell parser — it handles the constructs
// that matter for classification without building an AST.
package scan

import "strings"

// SplitChain splits a command on unquoted &&, ||, and ; operators,
// returning each segment trimmed. Pipes are NOT split points: pipelines
// like `sed | awk` are a single segment, so legitimate filter chains are
// classified as one command.
func SplitChain(cmd string) []string {
	var segments []string
	var cur strings.Builder
	i := 0
	inSingle := false
	inDouble := false
	escaped := false

	for i < len(cmd) {
		ch := cmd[i]

		if escaped {
			cur.WriteByte(ch)
			escaped = false
			i++
			continue
		}

		if ch == '\\' && !inSingle {
			cur.WriteByte(ch)
			escaped = true
			i++
			continue
		}

		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			cur.WriteByte(ch)
			i++
			continue
		}

		if ch == '"' && !inSingle {
			inDouble = !inDouble
			cur.WriteByte(ch)
			i++
			continue
		}

		if inSingle || inDouble {
			cur.WriteByte(ch)
			i++
			continue
		}

		if i+1 < len(cmd) {
			two := cmd[i : i+2]
			if two == "&&" || two == "||" {
				s := strings.TrimSpace(cur.String())
				if s != "" {
					segments = append(segments, s)
				}
				cur.Reset()
				i += 2
				continue
			}
		}

		if ch == ';' {
			s := strings.TrimSpace(cur.String())
			if s != "" {
				segments = append(segments, s)
			}
			cur.Reset()
			i++
			continue
		}

		cur.WriteByte(ch)
		i++
	}

	s := strings.TrimSpace(cur.String())
	if s != "" {
		segments = append(segments, s)
	}
	return segments
}

// HasChainOperators reports whether cmd contains an unquoted &&, ||, or ;.
func HasChainOperators(cmd string) bool {
	return len(SplitChain(cmd)) > 1
}

// Tokenize splits a command into tokens, treating single- and double-quoted
// substrings as part of one token and stripping the surrounding quotes.
// Backslash escapes are honored outside single quotes.
func Tokenize(cmd string) []string {
	var tokens []string
	var cur strings.Builder
	i := 0

	for i < len(cmd) {
		ch := cmd[i]

		// Whitespace separates tokens.
		if ch == ' ' || ch == '\t' || ch == '\n' {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			i++
			continue
		}

		// Single-quoted: everything literal until the closing quote.
		if ch == '\'' {
			i++
			for i < len(cmd) && cmd[i] != '\'' {
				cur.WriteByte(cmd[i])
				i++
			}
			if i < len(cmd) {
				i++ // closing quote
			}
			continue
		}

		// Double-quoted: backslash escapes work inside.
		if ch == '"' {
			i++
			for i < len(cmd) && cmd[i] != '"' {
				if cmd[i] == '\\' && i+1 < len(cmd) {
					i++
					cur.WriteByte(cmd[i])
					i++
					continue
				}
				cur.WriteByte(cmd[i])
				i++
			}
			if i < len(cmd) {
				i++
			}
			continue
		}

		if ch == '\\' && i+1 < len(cmd) {
			i++
			cur.WriteByte(cmd[i])
			i++
			continue
		}

		cur.WriteByte(ch)
		i++
	}

	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// ContainsWord reports whether word appears as a standalone token in cmd.
// "rm" matches `rm -rf x` and `echo a && rm b` but not `rmdir` or `format`.
// Pipe and redirection characters glued to a token (`|rm`, `>rm`) are
// treated as token boundaries.
func ContainsWord(cmd, word string) bool {
	for _, seg := range SplitChain(cmd) {
		for _, tok := range Tokenize(seg) {
			if strings.Trim(tok, "|&<>()") == word {
				return true
			}
		}
	}
	return false
}
