// Package epoch implements the global grace-period generation counter for
// the QSBR flavor of RCU.
//
// The counter encodes two things in one machine word: the low "online" bit
// (always set once the domain has been initialized) and a generation that
// writers advance once per grace period. Two advance strategies exist:
//
//   - SinglePhase64: add CtrStep (2) to the counter, preserving the online
//     bit and producing a fresh, never-repeating generation. Safe as long as
//     the counter cannot wrap during the lifetime of any live reader.
//   - TwoSubphase32: toggle a single parity bit. This never overflows, but a
//     reader observed at the "old" parity cannot be distinguished from one
//     that has wrapped all the way around unless the flip happens twice
//     per grace period (see the grace-period engine).
package epoch

import "sync/atomic"

// Ctr is a snapshot of either the global epoch or a reader's published copy
// of it. Zero always means "offline/quiescent"; any other value means
// "online", with the generation encoded in the remaining bits.
type Ctr = uint64

const (
	// Online is the value a freshly registered, freshly onlined reader
	// publishes before observing any writer-visible state.
	Online Ctr = 1

	// CtrStep is the amount SinglePhase64 advances the counter by on each
	// grace period. It is even so the low "online" bit is never disturbed.
	CtrStep Ctr = 2

	// ParityBit is the single bit TwoSubphase32 toggles. It must be above
	// the online bit so online-ness and parity are independently legible.
	ParityBit Ctr = 2
)

// Variant selects which grace-period advance algorithm a Global uses.
type Variant uint8

const (
	// SinglePhase64 advances the counter by CtrStep once per grace period.
	// Appropriate when the counter's word is wide enough that overflow
	// cannot plausibly occur (64-bit hosts).
	SinglePhase64 Variant = iota

	// TwoSubphase32 toggles ParityBit twice per grace period instead of
	// incrementing, avoiding overflow at the cost of one extra wait pass.
	TwoSubphase32
)

// State classifies a reader relative to the epoch a grace period just
// published.
type State int

const (
	// Inactive readers are offline; they hold no references to anything.
	Inactive State = iota

	// ActiveCurrent readers are online and have already observed the
	// post-flip epoch; they cannot hold pre-flip references.
	ActiveCurrent

	// ActiveOld readers are online but still encode a pre-flip epoch and
	// must be waited on.
	ActiveOld
)

// Global is the single process-wide (or per-Domain) grace-period counter.
// It carries no futex word of its own; the futex lives in gpwait.FutexWord
// and is owned by the grace-period engine.
type Global struct {
	ctr atomic.Uint64
}

// NewGlobal returns a Global initialized to the online generation 1.
func NewGlobal() *Global {
	g := &Global{}
	g.ctr.Store(Online)
	return g
}

// Load returns the current counter value.
func (g *Global) Load() Ctr {
	return g.ctr.Load()
}

// BumpSingle advances the counter by CtrStep and returns the new value.
// Used by the SinglePhase64 grace-period path.
func (g *Global) BumpSingle() Ctr {
	return g.ctr.Add(CtrStep)
}

// ToggleParity flips ParityBit and returns the new value. Used by the
// TwoSubphase32 grace-period path, once per subphase.
func (g *Global) ToggleParity() Ctr {
	for {
		old := g.ctr.Load()
		next := old ^ ParityBit
		if g.ctr.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Classify reports whether readerCtr represents a reader that is inactive,
// has already observed globalCtr (or a later generation under the given
// variant's notion of "current"), or is still lagging and must be waited
// on.
func Classify(readerCtr, globalCtr Ctr, variant Variant) State {
	if readerCtr == 0 {
		return Inactive
	}
	switch variant {
	case TwoSubphase32:
		if readerCtr&ParityBit == globalCtr&ParityBit {
			return ActiveCurrent
		}
		return ActiveOld
	default:
		if readerCtr == globalCtr {
			return ActiveCurrent
		}
		return ActiveOld
	}
}
