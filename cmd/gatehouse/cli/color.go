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
	"os"
)

const (
	colorRed   = "\033[1;31m"
	colorDim   = "\033[2m"
	colorReset = "\033[0m"
)

// noColor returns true when the NO_COLOR environment variable is set.
func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// isTerminal returns true if the given file descriptor is a terminal.
func isTerminal(fd *os.File) bool {
	fi, err := fd.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// stderrSupportsColor returns true when stderr supports ANSI colors.
// Respects the NO_COLOR convention (https://no-color.org/).
func stderrSupportsColor() bool {
	if noColor() {
		return false
	}
	return isTerminal(os.Stderr)
}

// formatBlockedMessage returns a branded rejection message for stderr.
func formatBlockedMessage(command, reason string) string {
	if stderrSupportsColor() {
		return fmt.Sprintf("🛡️ %sGatehouse blocked: %s%s\n   %sReason: %s%s\n",
			colorRed, command, colorReset,
			colorDim, reason, colorReset,
		)
	}
	return fmt.Sprintf("🛡️ Gatehouse blocked: %s\n   Reason: %s\n", command, reason)
}
