// Package health exposes cosmon's own operational gauges (loop state, reconnect counts, queue
// depth) on an optional Prometheus endpoint — self-health, distinct from the StatsD business
// metrics in internal/metrics (§6, Prom/PrometheusListenPort in the teacher's config).
package health

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the gauges/counters cosmon reports about its own loops.
type Registry struct {
	ListenerState       *prometheus.GaugeVec
	ReconnectsTotal     *prometheus.CounterVec
	CollectorQueueDepth prometheus.Gauge
	registerer          *prometheus.Registry
}

// New builds a fresh metric registry (not the global default registerer, so multiple
// instances — e.g. in tests — never collide).
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		ListenerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cosmon_listener_state",
			Help: "EventListener state machine: 0=connecting 1=subscribing 2=streaming 3=reconnecting",
		}, []string{"network"}),
		ReconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cosmon_reconnects_total",
			Help: "Total EventListener reconnects.",
		}, []string{"network"}),
		CollectorQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cosmon_collector_queue_depth",
			Help: "Current depth of the CollectorService request queue.",
		}),
		registerer: reg,
	}
	reg.MustRegister(r.ListenerState, r.ReconnectsTotal, r.CollectorQueueDepth)
	return r
}

// Serve starts a /metrics HTTP server on addr and blocks until ctx is canceled. Callers only
// invoke this when PrometheusConfig.Enabled is true (§6).
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registerer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = srv.Close()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Printf("health: metrics server: %v", err)
			return err
		}
		return nil
	}
}
