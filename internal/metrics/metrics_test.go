// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/statusfeed/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordEventDefaultsUnknown(t *testing.T) {
	before := counterValue(t, metrics.EventsConsumedTotal.WithLabelValues("unknown", "invalid"))
	metrics.RecordEvent("", "invalid")
	require.Equal(t, before+1, counterValue(t, metrics.EventsConsumedTotal.WithLabelValues("unknown", "invalid")))
}

func TestIncBusDropReasonDefaults(t *testing.T) {
	before := counterValue(t, metrics.BusDroppedTotal.WithLabelValues("unknown", "unknown"))
	metrics.IncBusDropReason("", "")
	require.Equal(t, before+1, counterValue(t, metrics.BusDroppedTotal.WithLabelValues("unknown", "unknown")))
}

func TestRecordRegistryCache(t *testing.T) {
	hit := counterValue(t, metrics.RegistryCacheTotal.WithLabelValues("hit"))
	miss := counterValue(t, metrics.RegistryCacheTotal.WithLabelValues("miss"))
	metrics.RecordRegistryCache(2, 0)
	require.Equal(t, hit+2, counterValue(t, metrics.RegistryCacheTotal.WithLabelValues("hit")))
	require.Equal(t, miss, counterValue(t, metrics.RegistryCacheTotal.WithLabelValues("miss")))
}

func TestPromhttpExposure(t *testing.T) {
	metrics.SetCircuitBreakerState("registry-test", "open")
	metrics.ObserveRegistryLookup("success", 10*time.Millisecond)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.Contains(text, `statusfeed_circuit_breaker_state{component="registry-test",state="open"} 1`))
	require.True(t, strings.Contains(text, `statusfeed_circuit_breaker_transitions_total{component="registry-test",to="open"}`))
	require.True(t, strings.Contains(text, "statusfeed_registry_lookup_seconds"))
}
