// SPDX-License-Identifier: MIT

// Package admin serves the operational HTTP surface: probes, metrics and a
// read-only view of tracked periods.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/health"
	"github.com/ManuGH/statusfeed/internal/log"
)

// PeriodReader returns the stored state of a period, nil when unknown.
type PeriodReader interface {
	Lookup(ctx context.Context, periodID uuid.UUID) (*model.PeriodState, error)
}

// Deps are the collaborators of the admin router.
type Deps struct {
	Health  *health.Manager
	Periods PeriodReader
	// Metrics defaults to the Prometheus default registry handler.
	Metrics http.Handler
	// RequestsPerMinute limits /api per client IP; zero disables the limit.
	RequestsPerMinute int
}

// NewRouter wires the admin routes.
func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(Metrics())

	r.Get("/healthz", d.Health.ServeHealth)
	r.Get("/readyz", d.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", d.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		if d.RequestsPerMinute > 0 {
			r.Use(RateLimit(RateLimitConfig{RequestLimit: d.RequestsPerMinute, WindowSize: time.Minute}))
		}
		r.Get("/periods/{periodId}", periodHandler(d.Periods))
	})
	return r
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func periodHandler(periods PeriodReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "periodId")
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "invalid_period_id", Detail: raw})
			return
		}

		st, err := periods.Lookup(r.Context(), id)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger := log.WithComponentFromContext(r.Context(), "admin")
			logger.Error().Err(err).Str(log.FieldEvent, "admin.lookup_failed").Str(log.FieldPeriodID, id.String()).Msg("period lookup failed")
			writeJSON(w, r, http.StatusInternalServerError, errorBody{Error: "lookup_failed"})
		case st == nil:
			writeJSON(w, r, http.StatusNotFound, errorBody{Error: "not_found", Detail: id.String()})
		default:
			writeJSON(w, r, http.StatusOK, st)
		}
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "admin")
		logger.Warn().Err(err).Str(log.FieldEvent, "admin.encode_failed").Msg("failed to encode response")
	}
}
