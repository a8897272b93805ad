// Package rcuconfig reads the environment-variable configuration surface
// the rest of the engine consults at Domain construction time.
//
// The retrieved race-detector reference repo's own doc.go flags this exact
// shape of configurability as future work ("configurable via environment
// variables (GORACE=...)"); this engine implements it rather than leaving
// it as a comment.
package rcuconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/kolkov/urcu-qsbr/internal/rcu/gpwait"
)

const (
	envActiveAttempts  = "URCU_QSBR_QS_ACTIVE_ATTEMPTS"
	envDistrustSignals = "URCU_QSBR_DISTRUST_SIGNALS"
	envPollInterval    = "URCU_QSBR_POLL_INTERVAL"
)

// Config is the resolved set of tunables for one Domain.
type Config struct {
	// ActiveAttempts is RCU_QS_ACTIVE_ATTEMPTS, the wait_for_readers loop
	// bound before the futex is armed.
	ActiveAttempts int

	// DistrustSignals enables DISTRUST_SIGNALS_EXTREME mode: both
	// process-wide mutexes become try-lock loops that poll at PollInterval
	// and treat EBUSY/EINTR as benign.
	DistrustSignals bool

	// PollInterval is the try-lock poll period used only when
	// DistrustSignals is true.
	PollInterval time.Duration
}

// Default returns the baseline configuration, with no environment
// overrides applied.
func Default() Config {
	return Config{
		ActiveAttempts:  gpwait.DefaultActiveAttempts,
		DistrustSignals: false,
		PollInterval:    10 * time.Millisecond,
	}
}

// FromEnv returns Default() overridden by whichever of
// URCU_QSBR_QS_ACTIVE_ATTEMPTS, URCU_QSBR_DISTRUST_SIGNALS, and
// URCU_QSBR_POLL_INTERVAL are set in the process environment. Malformed
// values are ignored and the default is kept, since configuration parsing
// failures are not treated as fatal.
func FromEnv() Config {
	c := Default()
	if v, ok := os.LookupEnv(envActiveAttempts); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ActiveAttempts = n
		}
	}
	if v, ok := os.LookupEnv(envDistrustSignals); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DistrustSignals = b
		}
	}
	if v, ok := os.LookupEnv(envPollInterval); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.PollInterval = d
		}
	}
	return c
}
