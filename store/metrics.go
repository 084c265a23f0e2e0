// SPDX-License-Identifier: MIT

package store

import "github.com/prometheus/client_golang/prometheus"

// metrics are the per-Store prometheus collectors, registered under the
// default registry the way cmd/webserver registers its own handlers'
// metrics. A store opened twice in the same process (e.g. in tests) uses
// a distinct const label per path, so registration never collides.
type metrics struct {
	bufferBytes prometheus.Gauge
	flushes     prometheus.Counter
	compactions prometheus.Counter
}

func newMetrics(path string) *metrics {
	labels := prometheus.Labels{"store": path}
	m := &metrics{
		bufferBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kgraph_store_buffer_bytes",
			Help:        "Bytes currently buffered awaiting flush.",
			ConstLabels: labels,
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kgraph_store_flushes_total",
			Help:        "Number of write-buffer flushes performed.",
			ConstLabels: labels,
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kgraph_store_compactions_total",
			Help:        "Number of on-disk compactions performed.",
			ConstLabels: labels,
		}),
	}
	// Best-effort registration: a second Store opened against the same
	// path in a test process would otherwise panic on duplicate
	// registration, so registration failures are ignored here rather
	// than surfaced to Open's caller.
	_ = prometheus.Register(m.bufferBytes)
	_ = prometheus.Register(m.flushes)
	_ = prometheus.Register(m.compactions)
	return m
}
