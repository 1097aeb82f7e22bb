// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/statusfeed/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }
func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1")
	assert.True(t, m.Ready(context.Background()).Ready)

	m.RegisterChecker(&mockChecker{name: "store", status: StatusDegraded})
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(&mockChecker{name: "bus", status: StatusUnhealthy})
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(NewPingChecker("store", func(context.Context) error { return errors.New("down") }))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, "down", body.Checks["store"].Error)
}

func TestManager_ServeHealthAlways200(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(&mockChecker{name: "x", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
}

func TestPingCheckerTimesOut(t *testing.T) {
	c := NewPingChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c.timeout = 10 * time.Millisecond
	r := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Contains(t, r.Error, "deadline")

	assert.Equal(t, StatusUnhealthy, NewPingChecker("nil", nil).Check(context.Background()).Status)
}

func TestStateChecker(t *testing.T) {
	state := "closed"
	c := NewStateChecker("registry_breaker", func() string { return state },
		map[string]Status{"open": StatusDegraded})
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
	state = "open"
	r := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "open", r.Message)
}

func TestLastActivityChecker(t *testing.T) {
	var last time.Time
	c := NewLastActivityChecker(func() time.Time { return last }, time.Minute)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	last = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	last = time.Now()
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
}

func TestInformational(t *testing.T) {
	c := Informational(&mockChecker{name: "cache", status: StatusUnhealthy})
	assert.Equal(t, "cache", c.Name())
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "periods.db")
	require.NoError(t, PerformStartupChecks(cfg))
	_, err := os.Stat(filepath.Dir(cfg.Store.Path))
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	cfg.Store.Backend = "badger"
	cfg.Store.Path = file
	require.Error(t, PerformStartupChecks(cfg))
}
