// Package reader defines the per-thread reader record that the rest of the
// engine manipulates: the analogue of liburcu's thread-local rcu_reader
// struct.
//
// Go has no compiler-provided thread-local storage, so the record is not
// addressed implicitly — it is allocated once by Domain.RegisterThread and
// handed back to the caller as a handle. This is the explicit keyed
// storage alternative to TLS; the ambient convenience layer in package
// qsbr keys a map by goroutine id to recover a handle for callers who
// don't want to carry one around (see qsbr/ambient.go), adapted from the
// retrieved race-detector reference repo's runtime.Stack-based goroutine
// id lookup.
package reader

import "sync/atomic"

// State is one registered reader's record. It is never copied after
// Register (the registry holds a pointer to it), and the hot-path fields
// are atomics so a writer scanning the registry never takes a lock the
// owning goroutine would also need.
type State struct {
	// Ctr mirrors liburcu's per-reader "ctr": 0 means offline/quiescent,
	// non-zero publishes the last epoch this reader observed.
	Ctr atomic.Uint64

	// Waiting is set by a writer that has armed the futex and wants this
	// reader to kick it awake on its next quiescent state.
	Waiting atomic.Bool

	// Registered is true strictly between RegisterThread and
	// UnregisterThread.
	Registered atomic.Bool

	// TID is an opaque, diagnostics-only identifier — the goroutine id at
	// registration time for the ambient layer, or caller-supplied for the
	// explicit API.
	TID uint64
}

// New allocates an offline reader record for the given diagnostic id. The
// caller must still publish it into the registry and bring it online.
func New(tid uint64) *State {
	return &State{TID: tid}
}

// Online reports whether the reader currently holds a published epoch,
// i.e. whether a read is ongoing.
func (s *State) Online() bool {
	return s.Ctr.Load() != 0
}
