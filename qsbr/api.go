package qsbr

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kolkov/urcu-qsbr/internal/rcu/epoch"
	"github.com/kolkov/urcu-qsbr/internal/rcu/gp"
	"github.com/kolkov/urcu-qsbr/internal/rcu/gpwait"
	"github.com/kolkov/urcu-qsbr/internal/rcu/metrics"
	"github.com/kolkov/urcu-qsbr/internal/rcu/rcuconfig"
	"github.com/kolkov/urcu-qsbr/internal/rcu/reader"
)

// Exported constants mirroring the engine's public symbol table, so an
// embedding application can reference the same numbers the engine itself
// uses without reaching into an internal package.
const (
	// GPOnline is the initial value of a domain's global epoch.
	GPOnline = epoch.Online

	// GPCtrStep is how far the single-phase advance moves the epoch on
	// each grace period.
	GPCtrStep = epoch.CtrStep

	// ActiveSpinAttempts is the default number of failed rescans a
	// writer performs before arming the futex and requesting wakeups.
	ActiveSpinAttempts = gpwait.DefaultActiveAttempts
)

// Domain is one independent RCU QSBR instance. The zero value is not
// usable; construct one with NewDomain.
type Domain struct {
	eng *gp.Domain
}

// DomainOption configures a Domain at construction time.
type DomainOption func(*domainOpts)

type domainOpts struct {
	cfg        *rcuconfig.Config
	registerer prometheus.Registerer
	variant    *epoch.Variant
}

// WithActiveSpinAttempts overrides RCU_QS_ACTIVE_ATTEMPTS for this domain
// instead of reading it (or its default) from the environment.
func WithActiveSpinAttempts(n int) DomainOption {
	return func(o *domainOpts) {
		cfg := o.resolvedConfig()
		cfg.ActiveAttempts = n
		o.cfg = &cfg
	}
}

// WithDistrustSignals turns on DISTRUST_SIGNALS_EXTREME mode: both of the
// domain's internal mutexes become try-lock poll loops instead of
// blocking, for embedders that cannot guarantee a blocking syscall won't
// be interrupted by an asynchronous signal handler.
func WithDistrustSignals(poll bool) DomainOption {
	return func(o *domainOpts) {
		cfg := o.resolvedConfig()
		cfg.DistrustSignals = poll
		o.cfg = &cfg
	}
}

// WithMetrics registers this domain's Prometheus collectors against reg.
func WithMetrics(reg prometheus.Registerer) DomainOption {
	return func(o *domainOpts) { o.registerer = reg }
}

// withForcedVariant is unexported: it exists so this package's own tests
// can exercise the 32-bit two-subphase algorithm on a 64-bit test host. It
// is not part of the public API because production callers should never
// need to second-guess GOARCH's choice of algorithm.
func withForcedVariant(v epoch.Variant) DomainOption {
	return func(o *domainOpts) { o.variant = &v }
}

func (o *domainOpts) resolvedConfig() rcuconfig.Config {
	if o.cfg != nil {
		return *o.cfg
	}
	return rcuconfig.FromEnv()
}

// NewDomain constructs an independent Domain. Most programs need exactly
// one and should keep it in a package-level variable; the package-level
// functions in ambient.go operate on one implicitly created the first time
// they are used.
func NewDomain(opts ...DomainOption) *Domain {
	var o domainOpts
	for _, opt := range opts {
		opt(&o)
	}

	var gpOpts []gp.Option
	gpOpts = append(gpOpts, gp.WithConfig(o.resolvedConfig()))
	if o.registerer != nil {
		gpOpts = append(gpOpts, gp.WithMetrics(metrics.New(o.registerer)))
	}
	if o.variant != nil {
		gpOpts = append(gpOpts, gp.WithVariant(*o.variant))
	}
	return &Domain{eng: gp.New(gpOpts...)}
}

// Reader is an explicit, caller-held handle to one registered reader
// thread. It must not be copied after Register returns nor shared between
// goroutines; one handle per reader, for the lifetime of that reader.
type Reader struct {
	dom *Domain
	st  *reader.State
}

// Register brings a new reader thread online in d and returns its handle.
// The caller must eventually call Unregister.
func (d *Domain) Register() *Reader {
	return &Reader{dom: d, st: d.eng.RegisterThread(0)}
}

// Unregister removes r from its domain. r must not be used again
// afterward.
func (r *Reader) Unregister() { r.dom.eng.UnregisterThread(r.st) }

// ReadLock marks the start of a read-side critical section. It is a no-op:
// the QSBR flavor of RCU has no per-critical-section bookkeeping, since a
// reader is already considered to be inside one for as long as it is
// online. Call it anyway at the start of a critical section so the code
// reads the same way it would against a flavor that does need it.
func (r *Reader) ReadLock() {}

// ReadUnlock marks the end of a read-side critical section. Also a no-op,
// for the same reason as ReadLock.
func (r *Reader) ReadUnlock() {}

// QuiescentState publishes the domain's current epoch as the last point
// this reader held no references, and wakes a writer if one is waiting on
// this reader specifically.
func (r *Reader) QuiescentState() { r.dom.eng.QuiescentState(r.st) }

// Offline marks r as holding no references until the matching Online
// call. A grace period never waits on an offline reader.
func (r *Reader) Offline() { r.dom.eng.ThreadOffline(r.st) }

// Online resumes observing the domain's current epoch after Offline.
func (r *Reader) Online() { r.dom.eng.ThreadOnline(r.st) }

// ReadOngoing reports whether r is currently online.
func (r *Reader) ReadOngoing() bool { return r.dom.eng.ReadOngoing(r.st) }

// Synchronize runs a full grace period on r's domain, treating r as the
// calling reader: if r is online, it is temporarily taken offline for the
// duration of the wait so a reader can call its own domain's Synchronize
// without deadlocking on itself.
func (r *Reader) Synchronize() { r.dom.eng.SynchronizeRCU(r.st) }

// Synchronize runs a full grace period on d with no associated reader:
// the calling goroutine is assumed not to be one of d's registered
// readers. Use the Reader method instead if it might be.
func (d *Domain) Synchronize() { d.eng.SynchronizeRCU(nil) }

// LogFields returns zap fields describing this domain's current state,
// for callers that want to fold RCU diagnostics into their own logger.
func (d *Domain) LogFields() []zap.Field { return d.eng.LogFields() }
