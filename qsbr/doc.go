// Package qsbr is the public facade for the userspace QSBR flavor of RCU:
// read-side critical sections that cost nothing (ReadLock and ReadUnlock
// are no-ops, and QuiescentState is one atomic store plus a flag check), and a
// synchronize_rcu that waits out every currently-online reader before
// returning.
//
// Two ways to use it
//
// The explicit API hands back a *Reader handle from Domain.Register and
// expects the caller to thread it through every subsequent call:
//
//	dom := qsbr.NewDomain()
//	rd := dom.Register()
//	defer rd.Unregister()
//
//	rd.ReadLock()
//	p := sharedPointer.Load()
//	use(p)
//	rd.ReadUnlock()
//	rd.QuiescentState()
//
// This is the canonical form: no hidden lookups, no per-call map access.
// Go provides no compiler-level thread-local storage the way the
// pthread_getspecific a C client relies on does, so there is no ambient
// handle to recover without carrying one — see ambient.go for the
// goroutine-id-keyed convenience layer built on top of this API for
// callers willing to pay a lookup per call in exchange for not carrying a
// handle.
//
// Writers
//
//	old := sharedPointer.Swap(newValue)
//	qsbr.Synchronize()
//	reclaim(old)
//
// Concurrent callers of Synchronize are coalesced: writers that queue up
// before the current leader starts its grace period share that grace
// period, and writers arriving while it runs share the next one, rather
// than running one apiece.
package qsbr
