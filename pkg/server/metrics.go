package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	parseFailures   *prometheus.CounterVec
	uploads         prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requestCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brainscan_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "brainscan_http_request_duration_seconds",
				Help: "HTTP request duration in seconds",
			},
			[]string{"method", "endpoint"},
		),
		parseFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brainscan_parse_failures_total",
				Help: "MRS files that failed to parse, by failure kind",
			},
			[]string{"kind"},
		),
		uploads: f.NewCounter(
			prometheus.CounterOpts{
				Name: "brainscan_uploads_total",
				Help: "Total number of stored MRS uploads",
			},
		),
	}
}
