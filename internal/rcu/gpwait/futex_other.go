//go:build !linux

package gpwait

import (
	"sync"
	"sync/atomic"
)

// platformFutex emulates the "notify one sleeping waiter" contract of a
// real futex with a condition variable on platforms with no native futex
// syscall. Adapted from the retrieved folly-futex transliteration's bucketed
// mutex+cond design, collapsed to a single bucket since a FutexWord never
// needs to disambiguate between multiple addresses.
type platformFutex struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func (f *FutexWord) initPlatform() {
	f.cond = sync.NewCond(&f.mu)
}

func (f *FutexWord) wait() {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Re-check under the lock: a Wake that landed between the lock-free
	// Armed() check in Wait() and here must not be missed, matching the
	// kernel futex's atomic compare-then-sleep semantics.
	for atomic.LoadInt32(&f.val) == armed {
		f.cond.Wait()
	}
}

func (f *FutexWord) wake() {
	f.mu.Lock()
	f.cond.Broadcast()
	f.mu.Unlock()
}
