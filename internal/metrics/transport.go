// Package metrics holds the Prometheus collectors shared by the REST
// transport, the key-value backend and the HTTP gateway.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream REST metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firerest",
			Name:      "upstream_requests_total",
			Help:      "Total number of REST requests sent to the document service",
		},
		[]string{"method", "status"}, // status: HTTP code or "error"
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "firerest",
			Name:      "upstream_request_duration_seconds",
			Help:      "REST request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firerest",
			Name:      "store_operations_total",
			Help:      "Total number of key-value backend document operations",
		},
		[]string{"op", "status"}, // status: "ok" / "not_found" / "error"
	)
)

var registerOnce sync.Once

// Register registers transport and gateway collectors on the default
// registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		mustRegister(prometheus.DefaultRegisterer,
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			StoreOperationsTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

func mustRegister(reg prometheus.Registerer, cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}
