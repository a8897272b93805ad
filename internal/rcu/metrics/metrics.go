// Package metrics exposes Prometheus instrumentation for the
// grace-period engine: how long grace periods take, how many readers are
// registered, how deep the writer coalescing queue gets, and how many
// synchronize_rcu calls were absorbed by coalescing rather than leading
// their own grace period.
//
// Wiring Prometheus here is the domain-stack counterpart of the pack's
// near-universal use of github.com/prometheus/client_golang for exactly
// this kind of "how is my concurrency engine behaving" telemetry
// (grounded on gravitational-teleport, moby-moby, ethereum-go-ethereum,
// mauriciomferz-Gauth_go, eugener-gandalf).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups every metric one Domain reports. A nil *Collectors is
// valid and every method on it is a no-op, so metrics remain entirely
// optional for callers who construct a Domain without a registry.
type Collectors struct {
	GracePeriods       prometheus.Counter
	GracePeriodSeconds prometheus.Histogram
	ActiveReaders      prometheus.Gauge
	WaiterQueueDepth   prometheus.Gauge
	Coalesced          prometheus.Counter
}

// New registers a fresh set of collectors under reg and returns them. Pass
// a dedicated prometheus.Registry (not prometheus.DefaultRegisterer) in
// tests that construct multiple Domains, to avoid duplicate-registration
// panics.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		GracePeriods: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urcu_qsbr",
			Name:      "grace_periods_total",
			Help:      "Number of grace periods actually run by a leader.",
		}),
		GracePeriodSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "urcu_qsbr",
			Name:      "grace_period_seconds",
			Help:      "Wall-clock duration of each grace period run by a leader.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		ActiveReaders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "urcu_qsbr",
			Name:      "active_readers",
			Help:      "Number of currently-registered reader threads.",
		}),
		WaiterQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "urcu_qsbr",
			Name:      "waiter_queue_depth",
			Help:      "Number of synchronize_rcu callers batched into the in-flight grace period.",
		}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urcu_qsbr",
			Name:      "coalesced_total",
			Help:      "Number of synchronize_rcu calls satisfied without leading their own grace period.",
		}),
	}
	reg.MustRegister(
		c.GracePeriods,
		c.GracePeriodSeconds,
		c.ActiveReaders,
		c.WaiterQueueDepth,
		c.Coalesced,
	)
	return c
}

func (c *Collectors) incGracePeriods() {
	if c != nil {
		c.GracePeriods.Inc()
	}
}

func (c *Collectors) observeGracePeriodSeconds(s float64) {
	if c != nil {
		c.GracePeriodSeconds.Observe(s)
	}
}

func (c *Collectors) setActiveReaders(n int) {
	if c != nil {
		c.ActiveReaders.Set(float64(n))
	}
}

func (c *Collectors) setWaiterQueueDepth(n int) {
	if c != nil {
		c.WaiterQueueDepth.Set(float64(n))
	}
}

func (c *Collectors) incCoalesced(n int) {
	if c != nil && n > 0 {
		c.Coalesced.Add(float64(n))
	}
}

// IncGracePeriods records that a leader completed one grace period.
func (c *Collectors) IncGracePeriods() { c.incGracePeriods() }

// ObserveGracePeriodSeconds records one grace period's wall-clock duration.
func (c *Collectors) ObserveGracePeriodSeconds(s float64) { c.observeGracePeriodSeconds(s) }

// SetActiveReaders publishes the current registry size.
func (c *Collectors) SetActiveReaders(n int) { c.setActiveReaders(n) }

// SetWaiterQueueDepth publishes the size of the batch a leader just drained.
func (c *Collectors) SetWaiterQueueDepth(n int) { c.setWaiterQueueDepth(n) }

// IncCoalesced records that n non-leader callers were satisfied by the
// grace period a leader just ran on their behalf.
func (c *Collectors) IncCoalesced(n int) { c.incCoalesced(n) }
