// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registryLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statusfeed_registry_lookup_seconds",
		Help:    "Document registry lookup latency by outcome",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"outcome"}) // outcome=success|error|circuit_open

	RegistryDocumentsMissing = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statusfeed_registry_documents_missing_total",
		Help: "Requested documents the registry did not return",
	})

	RegistryCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_registry_cache_total",
		Help: "Document id cache lookups by result",
	}, []string{"result"}) // result=hit|miss
)

// ObserveRegistryLookup records one registry round trip.
func ObserveRegistryLookup(outcome string, d time.Duration) {
	registryLookupDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRegistryCache counts cache hits and misses.
func RecordRegistryCache(hits, misses int) {
	if hits > 0 {
		RegistryCacheTotal.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		RegistryCacheTotal.WithLabelValues("miss").Add(float64(misses))
	}
}
