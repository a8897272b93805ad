// Package gp implements the grace-period engine: the synchronize_rcu state
// machine, its wait_for_readers inner loop, and the reader-facing fast-path
// operations that publish into the same Domain the engine scans.
//
// Most of this file's structure is grounded on the retrieved pack's
// detector.go pattern: a single stateful engine type,
// constructed with NewXxx, holding every piece of shared state the rest of
// the package's hot-path functions touch, with package-level globals
// reserved for the process-wide default instance one layer up (package
// qsbr, mirroring internal/race/api/race.go's det *detector.Detector).
package gp

import (
	"time"

	"go.uber.org/zap"

	"github.com/kolkov/urcu-qsbr/internal/rcu/epoch"
	"github.com/kolkov/urcu-qsbr/internal/rcu/gpwait"
	"github.com/kolkov/urcu-qsbr/internal/rcu/metrics"
	"github.com/kolkov/urcu-qsbr/internal/rcu/rcuconfig"
	"github.com/kolkov/urcu-qsbr/internal/rcu/rculog"
	"github.com/kolkov/urcu-qsbr/internal/rcu/rcumutex"
	"github.com/kolkov/urcu-qsbr/internal/rcu/reader"
	"github.com/kolkov/urcu-qsbr/internal/rcu/registry"
	"github.com/kolkov/urcu-qsbr/internal/rcu/waitqueue"
)

// Domain is one independent instance of the RCU QSBR engine: its own
// global epoch, its own reader registry, its own pair of mutexes, and its
// own writer coalescing queue. A process typically needs only one
// process-wide instance of all of this; Domain makes that instance constructible so
// tests (and embedding applications with more than one protected subsystem)
// can run several in isolation without cross-talk.
type Domain struct {
	global   *epoch.Global
	futex    *gpwait.FutexWord
	registry *registry.Registry
	waiters  *waitqueue.Queue

	gpLock       *rcumutex.Mutex
	registryLock *rcumutex.Mutex

	cfg     rcuconfig.Config
	variant epoch.Variant
	metrics *metrics.Collectors
}

// Option configures a Domain at construction time.
type Option func(*Domain)

// WithConfig overrides the rcuconfig.Config a Domain uses; by default
// NewDomain calls rcuconfig.FromEnv().
func WithConfig(cfg rcuconfig.Config) Option {
	return func(d *Domain) { d.cfg = cfg }
}

// WithMetrics attaches a set of Prometheus collectors. Without this
// option, all metrics calls are no-ops.
func WithMetrics(m *metrics.Collectors) Option {
	return func(d *Domain) { d.metrics = m }
}

// WithVariant forces a specific grace-period advance algorithm regardless
// of GOARCH, letting tests exercise the 32-bit two-subphase path on a
// 64-bit host.
func WithVariant(v epoch.Variant) Option {
	return func(d *Domain) { d.variant = v }
}

// New constructs an independent Domain.
func New(opts ...Option) *Domain {
	d := &Domain{
		global:   epoch.NewGlobal(),
		futex:    gpwait.NewFutexWord(),
		registry: registry.New(),
		waiters:  waitqueue.New(),
		cfg:      rcuconfig.FromEnv(),
		variant:  defaultVariant,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.gpLock = rcumutex.New(d.cfg.DistrustSignals, d.cfg.PollInterval)
	d.registryLock = rcumutex.New(d.cfg.DistrustSignals, d.cfg.PollInterval)
	return d
}

// RegisterThread links a fresh reader record into the registry and brings
// it online.
func (d *Domain) RegisterThread(tid uint64) *reader.State {
	rd := reader.New(tid)
	rculog.Assert(!rd.Registered.Load(), "rcu: register_thread on an already-registered reader")

	d.registryLock.Lock()
	rd.Registered.Store(true)
	d.registry.Add(rd)
	n := d.registry.Len()
	d.registryLock.Unlock()

	d.metrics.SetActiveReaders(n)
	d.ThreadOnline(rd)
	return rd
}

// UnregisterThread forces the reader offline first (so it cannot deadlock a
// concurrent grace period), then unlinks it.
func (d *Domain) UnregisterThread(rd *reader.State) {
	rculog.Assert(rd.Registered.Load(), "rcu: unregister_thread on a reader that is not registered")

	if rd.Online() {
		d.ThreadOffline(rd)
	}

	d.registryLock.Lock()
	rd.Registered.Store(false)
	d.registry.Remove(rd)
	n := d.registry.Len()
	d.registryLock.Unlock()

	d.metrics.SetActiveReaders(n)
}

// QuiescentState publishes the current epoch, then if a writer had
// requested a wakeup, clears the request and kicks the futex.
func (d *Domain) QuiescentState(rd *reader.State) {
	rculog.Assert(rd.Registered.Load(), "rcu: quiescent_state from an unregistered reader")
	rd.Ctr.Store(d.global.Load())
	d.wakeIfRequested(rd)
}

// ThreadOffline marks the reader quiescent until ThreadOnline.
func (d *Domain) ThreadOffline(rd *reader.State) {
	rd.Ctr.Store(0)
	d.wakeIfRequested(rd)
}

// ThreadOnline resumes observing the current epoch.
func (d *Domain) ThreadOnline(rd *reader.State) {
	rd.Ctr.Store(d.global.Load())
}

// ReadOngoing reports whether the reader is currently online.
func (d *Domain) ReadOngoing(rd *reader.State) bool {
	return rd.Online()
}

func (d *Domain) wakeIfRequested(rd *reader.State) {
	if rd.Waiting.CompareAndSwap(true, false) {
		d.futex.Wake()
	}
}

// SynchronizeRCU implements the full synchronize_rcu state machine. self,
// if non-nil, is the calling goroutine's own reader record in this Domain;
// passing it lets the engine mark self offline across the wait and restore
// it on return, so a reader can call SynchronizeRCU on itself without
// deadlocking on its own stale counter.
func (d *Domain) SynchronizeRCU(self *reader.State) {
	// self must go offline before the leader/follower race is even decided:
	// a follower sits in waitAsFollower until the leader's grace period
	// completes, and if self is the last reader the leader is waiting on,
	// leaving it online here deadlocks the leader against this goroutine.
	wasOnline := self != nil && self.Online()
	if wasOnline {
		d.ThreadOffline(self)
	}

	w := waitqueue.NewWaiter()
	leader := d.waiters.Enqueue(w)
	if !leader {
		d.waitAsFollower(w)
		if wasOnline {
			d.ThreadOnline(self)
		}
		return
	}

	// The leader's own node is already satisfied by the work it is about
	// to perform; mark it Running up front so nothing tries to wake it.
	w.MarkRunning()

	d.gpLock.Lock()
	start := time.Now()

	batch := d.waiters.DrainAll()
	d.metrics.SetWaiterQueueDepth(len(batch))

	d.registryLock.Lock()
	if !d.registry.Empty() {
		d.runGracePeriod()
	}
	d.registryLock.Unlock()

	d.gpLock.Unlock()

	d.metrics.IncGracePeriods()
	d.metrics.ObserveGracePeriodSeconds(time.Since(start).Seconds())
	d.metrics.IncCoalesced(len(batch) - 1) // everyone but the leader itself

	for _, waiter := range batch {
		waiter.MarkRunning()
	}

	if wasOnline {
		d.ThreadOnline(self)
	}
}

// runGracePeriod performs the actual epoch advance and reader wait, caller
// holds both gpLock and registryLock.
func (d *Domain) runGracePeriod() {
	switch d.variant {
	case epoch.TwoSubphase32:
		d.global.ToggleParity()
		var curSnap []*reader.State
		d.waitForReaders(d.registry.Snapshot(), &curSnap)
		d.global.ToggleParity()
		d.waitForReaders(curSnap, nil)
	default:
		d.global.BumpSingle()
		d.waitForReaders(d.registry.Snapshot(), nil)
	}
}

// waitForReaders scans the working set for readers still lagging behind
// the published epoch. Caller holds registryLock on entry and on every
// return; the lock is dropped only during the actual sleep between
// rescans.
func (d *Domain) waitForReaders(input []*reader.State, curSnap *[]*reader.State) {
	attempts := 0
	armed := false

	for len(input) > 0 {
		attempts++
		// Re-arm on every saturated pass: a reader's Wake resets the word,
		// and the readers still lagging must be asked to wake it again.
		if attempts > d.cfg.ActiveAttempts {
			d.futex.Arm()
			for _, rd := range input {
				rd.Waiting.Store(true)
			}
			armed = true
		}

		remaining := input[:0]
		gctr := d.global.Load()
		for _, rd := range input {
			switch epoch.Classify(rd.Ctr.Load(), gctr, d.variant) {
			case epoch.Inactive:
				// quiesced: drop it.
			case epoch.ActiveCurrent:
				if curSnap != nil {
					*curSnap = append(*curSnap, rd)
				}
				// else: also effectively done for this subphase.
			default: // ActiveOld
				remaining = append(remaining, rd)
			}
		}
		input = remaining

		if len(input) == 0 {
			if armed {
				d.futex.Disarm()
			}
			return
		}

		d.registryLock.Unlock()
		if armed {
			d.futex.Wait()
		} else {
			gpwait.Relax()
		}
		d.registryLock.Lock()
	}
}

// waitAsFollower is the non-leader half of the coalescing protocol: a
// bounded spin on the node's own state, then a blocking wait, mirroring the
// writer-side adaptive strategy of waitForReaders without ever touching
// the registry.
func (d *Domain) waitAsFollower(w *waitqueue.Waiter) {
	for attempt := 0; attempt < d.cfg.ActiveAttempts; attempt++ {
		if w.State() == waitqueue.Running {
			return
		}
		gpwait.Relax()
	}
	w.WaitUntilRunning()
}

// Global exposes the domain's epoch counter for diagnostics.
func (d *Domain) Global() *epoch.Global { return d.global }

// Variant reports the grace-period algorithm this Domain is using.
func (d *Domain) Variant() epoch.Variant { return d.variant }

// RegisteredCount reports the current registry size, for diagnostics.
func (d *Domain) RegisteredCount() int {
	d.registryLock.Lock()
	defer d.registryLock.Unlock()
	return d.registry.Len()
}

// LogFields returns structured fields describing this Domain's current
// state, used by callers that want to annotate their own log lines.
func (d *Domain) LogFields() []zap.Field {
	return []zap.Field{
		zap.Uint64("global_ctr", d.global.Load()),
		zap.Int("registered", d.RegisteredCount()),
	}
}
