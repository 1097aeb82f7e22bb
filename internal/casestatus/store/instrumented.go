// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusfeed_store_ops_total",
			Help: "Total period store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statusfeed_store_op_seconds",
			Help:    "Period store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps any StateStore to capture metrics.
type instrumentedStore struct {
	inner   StateStore
	backend string
}

func NewInstrumentedStore(inner StateStore, backend string) StateStore {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	res := "success"
	if err != nil {
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedStore) GetPeriod(ctx context.Context, id uuid.UUID) (st *model.PeriodState, err error) {
	start := time.Now()
	defer func() { i.observe("get_period", start, err) }()
	return i.inner.GetPeriod(ctx, id)
}

func (i *instrumentedStore) UpdatePeriod(ctx context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (st *model.PeriodState, err error) {
	start := time.Now()
	defer func() { i.observe("update_period", start, err) }()
	return i.inner.UpdatePeriod(ctx, id, fn)
}

func (i *instrumentedStore) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { i.observe("ping", start, err) }()
	return i.inner.Ping(ctx)
}

func (i *instrumentedStore) SweepTerminal(ctx context.Context, before time.Time) (n int, err error) {
	sw, ok := i.inner.(Sweeper)
	if !ok {
		return 0, ErrSweepUnsupported
	}
	start := time.Now()
	defer func() { i.observe("sweep", start, err) }()
	return sw.SweepTerminal(ctx, before)
}

func (i *instrumentedStore) Close() error { return i.inner.Close() }
