// Package gpwait implements the adaptive spin-then-futex wait strategy used
// by the grace-period engine's wait_for_readers loop and by non-leader
// synchronize_rcu callers waiting on their own waiter node.
//
// The futex word itself is backed by a real Linux futex(2) syscall via
// golang.org/x/sys/unix on GOOS=linux, and by a condition-variable emulation
// everywhere else ("substitute a condition-variable + mutex pair guarding the
// same notify-one-waiter semantics"). The emulation is adapted from the
// retrieved folly-futex transliteration (github.com/twmb/dash's
// experimental/futex package), simplified from that file's 4096-bucket
// address-hashing scheme down to one condition variable per FutexWord, since
// each Domain owns exactly one futex word rather than tracking futexes at
// arbitrary addresses.
package gpwait

import (
	"runtime"
	"sync/atomic"
	"time"
)

// DefaultActiveAttempts is RCU_QS_ACTIVE_ATTEMPTS: the number of failed
// rescans before the engine arms the futex and starts requesting wakeups
// instead of busy-spinning.
const DefaultActiveAttempts = 100

// armed is the sentinel value a futex word holds while a writer is asleep
// on it: -1 while a writer is sleeping, 0 otherwise.
const armed int32 = -1

const normal int32 = 0

// FutexWord is the global futex driven by wait_gp().
type FutexWord struct {
	val int32
	platformFutex
}

// NewFutexWord returns a disarmed futex word ready for use.
func NewFutexWord() *FutexWord {
	f := &FutexWord{val: normal}
	f.initPlatform()
	return f
}

// Arm sets the word to the sleeping sentinel, done by wait_for_readers right
// before it sets every remaining reader's Waiting flag.
func (f *FutexWord) Arm() {
	atomic.StoreInt32(&f.val, armed)
}

// Disarm clears the sentinel once the working set of readers has drained.
func (f *FutexWord) Disarm() {
	atomic.StoreInt32(&f.val, normal)
}

// Armed reports whether the word is currently in the sleeping state.
func (f *FutexWord) Armed() bool {
	return atomic.LoadInt32(&f.val) == armed
}

// Wake is called by a reader that noticed its own Waiting flag was set; it
// clears interest and kicks exactly one sleeping writer.
func (f *FutexWord) Wake() {
	atomic.StoreInt32(&f.val, normal)
	f.wake()
}

// Wait blocks the calling writer until the word is no longer armed: a read
// fence, a re-check (so a wake that already landed is not missed), the
// actual block, and EINTR retry versus EWOULDBLOCK return.
func (f *FutexWord) Wait() {
	if !f.Armed() {
		return
	}
	f.wait()
}

// Relax is the caa_cpu_relax-equivalent hint used by the bounded spin phase
// before the futex is armed. Go has no portable pause instruction, so this
// yields to the scheduler instead — the same tradeoff the
// platform-independent fallback paths elsewhere in this engine make.
func Relax() {
	runtime.Gosched()
}

// Backoff sleeps for attempt microseconds, capped at one millisecond. The
// grace-period engine does not call it: a non-leader synchronize_rcu caller
// goes straight from its Relax spin to waitqueue.Waiter.WaitUntilRunning.
func Backoff(attempt int) {
	d := time.Duration(attempt) * time.Microsecond
	if d > time.Millisecond {
		d = time.Millisecond
	}
	time.Sleep(d)
}
