package utils

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/Nephrolytics-ai/pd-report/"

// WrapIfNotNil prefixes err with the calling function name and any extra
// context, keeping err reachable through errors.Is / errors.As.
func WrapIfNotNil(err error, context ...string) error {
	if err == nil {
		return nil
	}

	parts := make([]string, 0, 1+len(context))
	parts = append(parts, callerName(2))
	parts = append(parts, context...)

	return fmt.Errorf("%s: %w", strings.Join(parts, " - "), err)
}

// callerName is the module-relative name of the function skip frames up.
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return strings.TrimPrefix(fn.Name(), modulePrefix)
}

// ContainsErrorSubstring reports whether err or any error it wraps, joined
// errors included, has target in its message.
func ContainsErrorSubstring(err error, target string) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), target) {
		return true
	}

	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			if ContainsErrorSubstring(inner, target) {
				return true
			}
		}
		return false
	default:
		return ContainsErrorSubstring(errors.Unwrap(err), target)
	}
}
