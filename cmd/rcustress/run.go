package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/urcu-qsbr/qsbr"
)

func newRunCmd() *cobra.Command {
	var (
		readers  int
		writers  int
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a mixed reader/writer workload against one domain for a fixed duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkload(cmd.Context(), readers, writers, duration)
		},
	}
	cmd.Flags().IntVar(&readers, "readers", 32, "number of concurrent reader goroutines")
	cmd.Flags().IntVar(&writers, "writers", 2, "number of concurrent writer goroutines")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run the workload")
	return cmd
}

// payload is the thing readers dereference and writers replace; it stands
// in for whatever RCU-protected data structure an embedding application
// actually has.
type payload struct {
	generation uint64
}

func runWorkload(parent context.Context, readers, writers int, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, duration)
	defer cancel()

	dom := qsbr.NewDomain()

	var current atomic.Pointer[payload]
	current.Store(&payload{generation: 0})

	var reads, grace atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < readers; i++ {
		g.Go(func() error {
			rd := dom.Register()
			defer rd.Unregister()
			for gctx.Err() == nil {
				p := current.Load()
				_ = p.generation
				reads.Add(1)
				rd.QuiescentState()
			}
			return nil
		})
	}

	for i := 0; i < writers; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				old := current.Load()
				current.Store(&payload{generation: old.generation + 1})
				dom.Synchronize()
				grace.Add(1)
				time.Sleep(time.Millisecond)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Printf("reads=%d grace_periods=%d final_generation=%d\n",
		reads.Load(), grace.Load(), current.Load().generation)
	return nil
}
