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

import "regexp"

// PatternRule is one compiled entry of the ordered pattern denylist.
type PatternRule struct {
	// Name is a short stable identifier, surfaced in verdicts and audit.
	Name string

	// Description explains the danger in user-facing terms.
	Description string

	re *regexp.Regexp
}

// Ruleset is the immutable rule material a Classifier evaluates.
// Exact entries match whole command names (the command equals the entry
// or starts with it followed by a space); Patterns are tried in order.
type Ruleset struct {
	Exact    []string
	Patterns []PatternRule
}

// builtinExact lists command names that are never safe for an agent to
// run, regardless of arguments. Matching is name-boundary exact:
// "format c:" matches "format", "reformat" does not.
var builtinExact = []string{
	"shutdown",
	"reboot",
	"halt",
	"poweroff",
	"mkfs",
	"fdisk",
	"sgdisk",
	"parted",
	"wipefs",
	"shred",
	"format",
	"sudo",
	"su",
	"doas",
}

func mustRule(name, description, expr string) PatternRule {
	return PatternRule{Name: name, Description: description, re: regexp.MustCompile(expr)}
}

// builtinPatterns is the ordered pattern denylist. Earlier entries win,
// so more specific rules come first. Patterns match anywhere in the
// command text, which deliberately covers commands hidden behind pipes.
var builtinPatterns = []PatternRule{
	mustRule("rm-wildcard",
		"rm with a wildcard argument",
		`(?i)\brm\s+(?:-{1,2}[\w=,-]+\s+)*\S*[*?]\S*`),
	mustRule("rm-root",
		"rm targeting the filesystem root",
		`(?i)\brm\s+(?:-{1,2}\S+\s+)*/(\s|$)`),
	mustRule("rm-current-dir",
		"rm targeting the current directory",
		`(?i)\brm\s+(?:-{1,2}\S+\s+)*\.{1,2}/?(\s|$)`),
	mustRule("rmdir-parents",
		"recursive rmdir removing parent directories",
		`(?i)\brmdir\s+(?:\S+\s+)*-{1,2}p(arents)?\b`),
	mustRule("truncate-redirect",
		"bare output redirection that truncates a file",
		`^\s*>\s*\S+\s*$`),
	mustRule("find-delete",
		"find with -delete",
		`(?i)\bfind\s+[^|;&]*\s-delete\b`),
	mustRule("find-exec-rm",
		"find executing rm on its results",
		`(?i)\bfind\s+[^|;&]*-exec\s+rm\b`),
	mustRule("xargs-rm",
		"piping file names into rm via xargs",
		`(?i)\|\s*xargs\s+(?:-\S+\s+)*rm\b`),
	mustRule("git-clean-force",
		"git clean with force or directory removal",
		`(?i)\bgit\s+(?:\S+\s+)*clean\s+(?:\S+\s+)*-\w*[fdx]`),
	mustRule("git-reset-hard",
		"git reset --hard discards uncommitted work",
		`(?i)\bgit\s+(?:\S+\s+)*reset\s+(?:\S+\s+)*--hard\b`),
	mustRule("disk-tool",
		"disk or partition tool invocation",
		`(?i)(^|[|;&]\s*)(sudo\s+)?(mkfs(\.\w+)?|mke2fs|fdisk|sgdisk|gdisk|parted|wipefs|shred|diskutil\s+erase\w*)(\s|$)`),
	mustRule("power-control",
		"system power control",
		`(?i)(^|[|;&]\s*)(sudo\s+)?(shutdown|reboot|poweroff|halt)(\s|$)`),
	mustRule("dd-to-device",
		"dd writing to a raw device",
		`(?i)\bdd\s+[^|;&]*\bof=/dev/`),
	mustRule("redirect-to-device",
		"redirecting output onto a raw device",
		`>\s*/dev/(sd|hd|nvme|vd|xvd|disk|mmcblk)\S*`),
	mustRule("redirect-to-system-file",
		"overwriting a critical system file",
		`>\s*/etc/(passwd|shadow|sudoers|hosts)\b`),
	mustRule("chmod-777-absolute",
		"world-writable permissions on an absolute path",
		`(?i)\bchmod\s+(?:-\w+\s+)*0?777\s+/`),
	mustRule("chmod-recursive-777",
		"recursive world-writable permissions",
		`(?i)\bchmod\s+-\w*R\w*\s+0?777\b`),
	mustRule("chown-recursive-root",
		"recursive ownership change to root",
		`(?i)\bchown\s+-\w*R\w*\s+\S*root\b`),
	mustRule("service-stop",
		"stopping or disabling a system service",
		`(?i)\b(systemctl\s+(stop|disable|mask)\b|service\s+\S+\s+stop\b)`),
	mustRule("firewall-off",
		"disabling or flushing the firewall",
		`(?i)\b(ufw\s+disable\b|iptables\s+(-F\b|--flush))`),
	mustRule("history-wipe",
		"erasing shell history",
		`(?i)\bhistory\s+-c\b|>\s*\S*_history\b|\brm\s+(?:-\S+\s+)*\S*_history\b`),
	mustRule("crontab-wipe",
		"removing all cron entries",
		`(?i)\bcrontab\s+-\w*r\b`),
	mustRule("kill-init",
		"killing PID 1 or the init process",
		`(?i)\bkill\s+(?:-\w+\s+)*1(\s|$)|\bpkill\s+(?:-\S+\s+)*(init|systemd)\b`),
	mustRule("pipe-to-shell",
		"piping a remote download into a shell",
		`(?i)\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(bash|sh|zsh|dash)\b`),
}
