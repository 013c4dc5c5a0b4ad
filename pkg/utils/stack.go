package utils

import (
	"fmt"
	"runtime"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
)

const maxStackFrames = 64

// PrintStack logs the stack of its caller's caller, one frame per line.
func PrintStack(title string, log logging.Logger) {
	pcs := make([]uintptr, maxStackFrames)
	// Skip runtime.Callers, PrintStack and its caller.
	n := runtime.Callers(3, pcs)

	log.Errorf(" %s Stack trace:", title)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		log.Errorf("     *** %s (%s:%d)", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
}

// RecoveredError logs a recovered panic value with the stack and converts it
// to an error. It must be called from the deferred function that recovered.
func RecoveredError(recovered any, title string, log logging.Logger) error {
	log.Errorf("panic: %v", recovered)
	PrintStack(title, log)
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", recovered)
}
