// Package stacktrace trims panic stacks down to frames from this module.
package stacktrace

import (
	"strings"

	"github.com/samber/lo"
)

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" entries found in a
// raw debug.Stack() dump, outermost frame last.
func InternalPaths(stack []byte) []string {
	return lo.FilterMap(strings.Split(string(stack), "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)

		idx := strings.Index(line, "/internal/")
		if idx == -1 || !strings.Contains(line, ".go:") {
			return "", false
		}

		frame := line[idx+1:]
		if sp := strings.IndexByte(frame, ' '); sp != -1 {
			frame = frame[:sp]
		}
		return frame, true
	})
}
