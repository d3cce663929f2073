package output

import "github.com/prospection/autofollow/internal/types"

// ExitCode returns the process exit code for a finished run: 1 when any
// result is an error.
func ExitCode(summary types.Summary) int {
	if summary.Failed() {
		return 1
	}
	return 0
}
