// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statusfeed_http_request_duration_seconds",
		Help:    "Admin HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statusfeed_http_requests_in_flight",
		Help: "Current number of admin HTTP requests being served",
	})

	HTTPRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_http_rate_limited_total",
		Help: "Admin requests rejected by the rate limiter",
	}, []string{"path"})
)
