// Command rcustress drives configurable reader/writer workloads against a
// qsbr.Domain, for manual soak testing and for exercising the scenarios
// package qsbr's tests check in isolation.
//
// Usage:
//
//	rcustress run --readers 64 --writers 4 --duration 10s
//	rcustress serve --addr :9090
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
