// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package scan

import "testing"

func TestSplitChain(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want []string
	}{
		{"simple", "ls", []string{"ls"}},
		{"and", "a && b", []string{"a", "b"}},
		{"or", "a || b", []string{"a", "b"}},
		{"semicolon", "a ; b", []string{"a", "b"}},
		{"pipe is not a split point", "a | b", []string{"a | b"}},
		{"mixed", "a && b | c ; d", []string{"a", "b | c", "d"}},
		{"quoted separator", "echo 'a&&b'", []string{"echo 'a&&b'"}},
		{"double quoted separator", `echo "a;b"`, []string{`echo "a;b"`}},
		{"escaped semicolon", `echo a\;b`, []string{`echo a\;b`}},
		{"empty", "", nil},
		{"empty segments", "a ;; b", []string{"a", "b"}},
		{"newline inside segment", "echo a\nb", []string{"echo a\nb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitChain(tt.cmd)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitChain(%q) = %v (len %d), want %v (len %d)",
					tt.cmd, got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want []string
	}{
		{"plain", "rm -rf src", []string{"rm", "-rf", "src"}},
		{"single quoted path", "rm 'my file.txt'", []string{"rm", "my file.txt"}},
		{"double quoted path", `rm "my file.txt"`, []string{"rm", "my file.txt"}},
		{"escape inside double quotes", `echo "a\"b"`, []string{"echo", `a"b`}},
		{"backslash escape", `rm my\ file`, []string{"rm", "my file"}},
		{"tabs and newlines", "a\tb\nc", []string{"a", "b", "c"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.cmd)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.cmd, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		cmd  string
		word string
		want bool
	}{
		{"rm -rf src", "rm", true},
		{"echo a && rm b", "rm", true},
		{"echo hi | rm x", "rm", true},
		{"rmdir foo", "rm", false},
		{"format C:", "rm", false},
		{"echo rm", "rm", true},
		{"echo 'rm -rf /'", "rm", false},
		{"", "rm", false},
	}

	for _, tt := range tests {
		if got := ContainsWord(tt.cmd, tt.word); got != tt.want {
			t.Errorf("ContainsWord(%q, %q) = %v, want %v", tt.cmd, tt.word, got, tt.want)
		}
	}
}

func FuzzSplitChain(f *testing.F) {
	f.Add("a && b || c ; d | e")
	f.Add(`echo "a&&b" && 'c;d'`)
	f.Add(";;;&&&&||||")
	f.Add("")

	f.Fuzz(func(t *testing.T, cmd string) {
		// Should never panic, and segments never contain leading/trailing space.
		for _, seg := range SplitChain(cmd) {
			if seg == "" {
				t.Error("SplitChain returned empty segment")
			}
		}
	})
}
