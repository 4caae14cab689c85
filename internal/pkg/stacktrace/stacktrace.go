// Package stacktrace trims goroutine stacks down to this module's frames.
package stacktrace

import (
	"fmt"
	"runtime"
	"strings"
)

const marker = "/internal/"

// Internal returns "internal/<pkg>/<file>.go:<line>" for each caller frame
// inside an internal package, starting skip frames above Internal itself.
func Internal(skip int) []string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		if i := strings.Index(f.File, marker); i >= 0 {
			out = append(out, fmt.Sprintf("%s:%d", f.File[i+1:], f.Line))
		}
		if !more {
			break
		}
	}
	return out
}
