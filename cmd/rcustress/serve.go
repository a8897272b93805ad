package main

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kolkov/urcu-qsbr/qsbr"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		readers  int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a background workload while exposing its metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveWorkload(cmd.Context(), addr, readers, interval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "address to serve /metrics on")
	cmd.Flags().IntVar(&readers, "readers", 16, "number of background reader goroutines")
	cmd.Flags().DurationVar(&interval, "interval", 50*time.Millisecond, "writer grace-period interval")
	return cmd
}

func serveWorkload(ctx context.Context, addr string, readers int, interval time.Duration) error {
	reg := prometheus.NewRegistry()
	dom := qsbr.NewDomain(qsbr.WithMetrics(reg))

	var current atomic.Pointer[int]
	zero := 0
	current.Store(&zero)

	for i := 0; i < readers; i++ {
		go func() {
			rd := dom.Register()
			defer rd.Unregister()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				_ = *current.Load()
				rd.QuiescentState()
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n++
				v := n
				current.Store(&v)
				dom.Synchronize()
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
