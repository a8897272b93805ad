//go:build 386 || arm || mips || mipsle

package gp

import "github.com/kolkov/urcu-qsbr/internal/rcu/epoch"

// defaultVariant is the grace-period advance algorithm this GOARCH selects
// when no Domain-level override is set. A 32-bit counter word wraps after
// far fewer grace periods than a 64-bit one could plausibly see in a
// long-lived process, so the two-subphase parity-toggle advance applies
// instead of a monotonically incrementing counter.
const defaultVariant = epoch.TwoSubphase32
