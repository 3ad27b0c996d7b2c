package netemu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricRequestsCount counts the requests by outcome.
	metricRequestsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netshaper_requests_count",
		Help: "Requests handled by the network emulator by outcome",
	}, []string{"outcome"})

	// metricRequestsInflight gauges the requests currently in the emulator.
	metricRequestsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netshaper_requests_inflight",
		Help: "Requests currently waiting for latency or for the transport",
	})

	// metricInjectedLatency summarizes the injected latency.
	metricInjectedLatency = promauto.NewSummary(prometheus.SummaryOpts{
		Name:       "netshaper_injected_latency_seconds",
		Help:       "Summarizes the latency injected before dispatching",
		Objectives: map[float64]float64{0.25: 0.010, 0.5: 0.010, 0.75: 0.010, 0.9: 0.010},
	})

	// metricThrottledBytes counts the bytes delivered by paced bodies.
	metricThrottledBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netshaper_throttled_bytes_total",
		Help: "Bytes delivered by throttled response bodies",
	})

	// metricThrottleAborts counts the paced bodies that were aborted.
	metricThrottleAborts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netshaper_throttle_aborts_total",
		Help: "Throttled response bodies closed before EOF",
	})
)
