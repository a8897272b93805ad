// Package registry implements the reader registry: the set of all
// currently-registered reader records that a grace period scans to decide
// who it still needs to wait for.
//
// The list itself is intrusive and circular with a sentinel node, in the
// style of the bucket lists the retrieved futex reference implementation
// uses for its wait queues; unlike a generic container/list, membership
// here is always driven by RegisterThread/UnregisterThread so there is
// exactly one entry per live reader.
package registry

import "github.com/kolkov/urcu-qsbr/internal/rcu/reader"

type entry struct {
	rd         *reader.State
	prev, next *entry
}

// Registry is the reader registry itself. It carries no mutex of its own:
// the grace-period engine needs to drop and reacquire rcu_registry_lock
// between wait iterations, and that lock also needs a
// DISTRUST_SIGNALS_EXTREME try-lock mode (package rcumutex), so the engine
// (package gp) owns that lock and is responsible for holding it across
// every call here.
type Registry struct {
	sentinel entry
	byReader map[*reader.State]*entry
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{byReader: make(map[*reader.State]*entry)}
	r.sentinel.next = &r.sentinel
	r.sentinel.prev = &r.sentinel
	return r
}

// Add links rd into the registry. The caller must hold rcu_registry_lock.
func (r *Registry) Add(rd *reader.State) {
	e := &entry{rd: rd}
	e.prev = r.sentinel.prev
	e.next = &r.sentinel
	r.sentinel.prev.next = e
	r.sentinel.prev = e
	r.byReader[rd] = e
}

// Remove unlinks rd from the registry. The caller must hold
// rcu_registry_lock. A rd not currently registered is a no-op.
func (r *Registry) Remove(rd *reader.State) {
	e, ok := r.byReader[rd]
	if !ok {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(r.byReader, rd)
}

// Empty reports whether the registry currently has no members. The caller
// must hold rcu_registry_lock.
func (r *Registry) Empty() bool {
	return r.sentinel.next == &r.sentinel
}

// Len returns the number of registered readers. The caller must hold
// rcu_registry_lock.
func (r *Registry) Len() int {
	return len(r.byReader)
}

// Snapshot returns every currently-registered reader as a plain slice. The
// caller must hold rcu_registry_lock. The grace-period engine treats this as
// its own working set rather than splicing nodes in and
// out of the live intrusive list — membership in the registry itself never
// changes during a wait, only which scratch bucket a reader is tracked
// under locally to the engine.
func (r *Registry) Snapshot() []*reader.State {
	out := make([]*reader.State, 0, len(r.byReader))
	for e := r.sentinel.next; e != &r.sentinel; e = e.next {
		out = append(out, e.rd)
	}
	return out
}
