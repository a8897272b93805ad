//go:build amd64 || arm64 || riscv64 || ppc64 || ppc64le || mips64 || mips64le || s390x || wasm

package gp

import "github.com/kolkov/urcu-qsbr/internal/rcu/epoch"

// defaultVariant is the grace-period advance algorithm this GOARCH selects
// when no Domain-level override is set (selected at build time by word
// width). 64-bit words cannot plausibly overflow
// within a grace period's lifetime, so the single-phase advance applies.
const defaultVariant = epoch.SinglePhase64
