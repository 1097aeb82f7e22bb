// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/metrics"
	"github.com/ManuGH/statusfeed/internal/platform/httpx"
	"github.com/ManuGH/statusfeed/internal/resilience"
	"github.com/ManuGH/statusfeed/internal/telemetry"
)

const (
	lookupPath     = "/api/meldinger"
	callIDHeader   = "callId"
	maxErrBodySize = 4 << 10
)

// HTTPConfig configures the registry HTTP client.
type HTTPConfig struct {
	BaseURL          string
	Token            string // optional bearer token
	Timeout          time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry responded %d: %s", e.Code, e.Body)
}

// HTTPClient talks to the document registry over HTTP.
type HTTPClient struct {
	cfg     HTTPConfig
	http    *http.Client
	breaker *resilience.CircuitBreaker
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPClient{
		cfg:     cfg,
		http:    httpx.NewClient(cfg.Timeout, httpx.WithTracing()),
		breaker: resilience.NewCircuitBreaker("registry", cfg.BreakerThreshold, cfg.BreakerReset),
	}
}

type lookupRequest struct {
	InternalIDs []uuid.UUID `json:"internDokumentIder"`
}

type lookupResponse struct {
	Documents []struct {
		Type       string    `json:"type"`
		InternalID uuid.UUID `json:"internDokumentId"`
		ExternalID uuid.UUID `json:"eksternDokumentId"`
		ReportedAt string    `json:"rapportertDato"`
	} `json:"meldinger"`
}

// Lookup fetches documents for ids in one round trip.
func (c *HTTPClient) Lookup(ctx context.Context, ids []uuid.UUID) ([]Document, error) {
	ctx, span := telemetry.Tracer("statusfeed/registry").Start(ctx, "registry.lookup")
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.DocumentCountKey, len(ids)))

	start := time.Now()
	var docs []Document
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		docs, err = c.do(ctx, ids)
		return err
	})

	outcome := "success"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	metrics.ObserveRegistryLookup(outcome, time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err, outcome)
		return nil, fmt.Errorf("registry lookup of %d ids: %w", len(ids), err)
	}
	return docs, nil
}

func (c *HTTPClient) do(ctx context.Context, ids []uuid.UUID) ([]Document, error) {
	body, err := json.Marshal(lookupRequest{InternalIDs: ids})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+lookupPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(callIDHeader, callID(ctx))
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Documents))
	for _, d := range parsed.Documents {
		docs = append(docs, Document{
			InternalID: d.InternalID,
			ExternalID: d.ExternalID,
			Type:       d.Type,
			ReportedAt: parseReported(d.ReportedAt),
		})
	}
	return docs, nil
}

// callID reuses the inbound event id so registry logs correlate with ours.
func callID(ctx context.Context) string {
	if id := log.EventIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func parseReported(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Breaker exposes the circuit breaker state for readiness reporting.
func (c *HTTPClient) Breaker() *resilience.CircuitBreaker { return c.breaker }
