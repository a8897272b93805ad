package qsbr

import (
	"runtime"
	"sync"
)

// Ambient convenience layer: package-level functions keyed by goroutine
// id, for callers who would rather pay a map lookup per call than carry a
// *Reader handle through their own call stack. It is built entirely on
// top of the explicit API in api.go — it owns no engine state of its own.
//
// Go provides no compiler-exposed thread-local storage, so "ambient" here
// still costs a real lookup: a runtime.Stack-based goroutine id parse
// (adapted from the retrieved race-detector reference repo's
// goid_generic.go/goid_fallback.go path) plus a mutex-guarded map access, on every
// call. That repo's fast path for this lookup (goid_amd64.go / goid_fast.go)
// resolves goid through an unsafe, Go-version-pinned offset into runtime.g —
// a hack that was already shipped disabled behind a "disabled_for_v0_1_0"
// build tag in that repo's own history. This package does not resurrect it:
// an RCU client mistakenly running on a Go release with a shifted g layout
// would corrupt memory silently, which is a far worse failure mode than the
// ambient layer simply costing ~1.5us instead of ~1ns. Callers for whom that
// cost matters should use the explicit *Reader API instead.
var (
	defaultDomainOnce sync.Once
	defaultDomain     *Domain

	ambientMu   sync.Mutex
	ambientRead = map[int64]*Reader{}
)

func global() *Domain {
	defaultDomainOnce.Do(func() {
		defaultDomain = NewDomain()
	})
	return defaultDomain
}

// goroutineID parses the calling goroutine's id out of runtime.Stack's
// header line ("goroutine 123 [running]:\n..."). It never allocates past
// the fixed stack-local buffer.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}

func ambientReader() *Reader {
	gid := goroutineID()

	ambientMu.Lock()
	r, ok := ambientRead[gid]
	ambientMu.Unlock()
	if ok {
		return r
	}

	r = global().Register()
	ambientMu.Lock()
	ambientRead[gid] = r
	ambientMu.Unlock()
	return r
}

// Register registers the calling goroutine's ambient reader if it has none
// yet. It is optional: every ambient call registers lazily, on
// first use, the same way the retrieved race-detector reference repo's
// getCurrentContext allocates a RaceContext on first access rather than
// requiring an explicit call. Exists so call sites can still document
// intent with a deliberate first touch, e.g. qsbr.Register() at the top of
// a new goroutine.
func Register() { ambientReader() }

// Unregister removes the calling goroutine's ambient reader from the
// default domain. Call this before the goroutine exits if it registered
// via the ambient API; otherwise its slot leaks for the life of the
// process, since nothing else observes goroutine exit.
func Unregister() {
	gid := goroutineID()
	ambientMu.Lock()
	r, ok := ambientRead[gid]
	if ok {
		delete(ambientRead, gid)
	}
	ambientMu.Unlock()
	if ok {
		r.Unregister()
	}
}

// ReadLock calls Reader.ReadLock for the calling goroutine's ambient
// reader, registering it first if this is its first ambient call.
func ReadLock() { ambientReader().ReadLock() }

// ReadUnlock calls Reader.ReadUnlock for the calling goroutine's ambient
// reader.
func ReadUnlock() { ambientReader().ReadUnlock() }

// QuiescentState calls Reader.QuiescentState for the calling goroutine's
// ambient reader, registering it first if this is its first ambient call.
func QuiescentState() { ambientReader().QuiescentState() }

// Offline calls Reader.Offline for the calling goroutine's ambient reader.
func Offline() { ambientReader().Offline() }

// Online calls Reader.Online for the calling goroutine's ambient reader.
func Online() { ambientReader().Online() }

// ReadOngoing calls Reader.ReadOngoing for the calling goroutine's ambient
// reader.
func ReadOngoing() bool { return ambientReader().ReadOngoing() }

// Synchronize runs a grace period on the default domain, treating the
// calling goroutine as its own ambient reader if it has registered one
// (so it is self-wait-free), or as a non-reader writer otherwise.
func Synchronize() {
	gid := goroutineID()
	ambientMu.Lock()
	r, ok := ambientRead[gid]
	ambientMu.Unlock()
	if ok {
		r.Synchronize()
		return
	}
	global().Synchronize()
}
