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

package guard

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// rulesetFile is the on-disk YAML shape of a ruleset.
type rulesetFile struct {
	Version       string `yaml:"version"`
	ExactCommands []string `yaml:"exact_commands"`
	Patterns      []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Regex       string `yaml:"regex"`
	} `yaml:"patterns"`
}

// DefaultRuleset returns the built-in rules merged with the embedded
// defaults file. The embedded file is validated at build time by tests;
// a corrupt embed is a programmer error and panics.
func DefaultRuleset() Ruleset {
	extra, err := parseRuleset(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("guard: embedded defaults.yaml invalid: %v", err))
	}
	return Merge(Ruleset{Exact: builtinExact, Patterns: builtinPatterns}, extra)
}

// LoadFile reads additional rules from a YAML file. Any malformed entry
// fails the whole load: a gateway must never start with a ruleset it
// only partially understood.
func LoadFile(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("guard: read ruleset: %w", err)
	}
	rs, err := parseRuleset(data)
	if err != nil {
		return Ruleset{}, fmt.Errorf("guard: ruleset %s: %w", path, err)
	}
	return rs, nil
}

// Merge appends extra's rules after base's. Pattern order is preserved,
// so base rules keep precedence.
func Merge(base, extra Ruleset) Ruleset {
	merged := Ruleset{
		Exact:    make([]string, 0, len(base.Exact)+len(extra.Exact)),
		Patterns: make([]PatternRule, 0, len(base.Patterns)+len(extra.Patterns)),
	}
	merged.Exact = append(merged.Exact, base.Exact...)
	merged.Exact = append(merged.Exact, extra.Exact...)
	merged.Patterns = append(merged.Patterns, base.Patterns...)
	merged.Patterns = append(merged.Patterns, extra.Patterns...)
	return merged
}

func parseRuleset(data []byte) (Ruleset, error) {
	var file rulesetFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return Ruleset{}, fmt.Errorf("parse: %w", err)
	}

	var rs Ruleset
	for i, name := range file.ExactCommands {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return Ruleset{}, fmt.Errorf("exact_commands[%d]: empty name", i)
		}
		if strings.ContainsAny(name, " \t") {
			return Ruleset{}, fmt.Errorf("exact_commands[%d]: %q must be a single word", i, name)
		}
		rs.Exact = append(rs.Exact, name)
	}
	for i, p := range file.Patterns {
		if strings.TrimSpace(p.Name) == "" {
			return Ruleset{}, fmt.Errorf("patterns[%d]: missing name", i)
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return Ruleset{}, fmt.Errorf("patterns[%d] (%s): %w", i, p.Name, err)
		}
		desc := p.Description
		if desc == "" {
			desc = p.Name
		}
		rs.Patterns = append(rs.Patterns, PatternRule{Name: p.Name, Description: desc, re: re})
	}
	return rs, nil
}
