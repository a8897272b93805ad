// Package rculog provides the structured-logging and fatal-abort surface
// used across the engine. The core leaves no room for recoverable errors:
// a programmer contract violation or an OS primitive failure both abort
// the process after logging a diagnostic, routed through a structured
// logger rather than fmt.Fprintf, matching how the pack's longer-lived
// services (gravitational-teleport, sgtest-megarepo/grafana) report fatal
// errors.
package rculog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger *zap.Logger
)

// init installs a sensible production default so packages that never call
// SetLogger still get structured output instead of a nil-pointer panic.
func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

// SetLogger replaces the process-wide logger. Intended for tests and for
// embedding applications that want RCU diagnostics folded into their own
// zap logger tree.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// L returns the current process-wide logger.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Fatal logs msg with the given fields and then aborts the process. Neither
// a programmer contract violation nor an OS primitive failure leaves the
// engine's invariants in a state worth trying to continue from.
func Fatal(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
	os.Exit(2)
}

// Assert aborts the process via Fatal if cond is false, used at contract
// boundaries such as double-register, quiescent-state from an unregistered
// thread, or unregister from not-registered.
func Assert(cond bool, msg string, fields ...zap.Field) {
	if !cond {
		Fatal(msg, fields...)
	}
}
