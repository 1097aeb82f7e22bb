// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"

	"github.com/ManuGH/statusfeed/internal/platform/httpx"
	"github.com/ManuGH/statusfeed/internal/validate"
)

var (
	busBackends      = []string{"memory", "redis"}
	storeBackends    = []string{"memory", "badger", "sqlite", "redis"}
	cacheBackends    = []string{"none", "memory", "redis"}
	telemetryExports = []string{"grpc", "http"}
)

// Validate reports every invalid setting of cfg at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("log.level", cfg.Log.Level, validate.LogLevels)
	v.NotEmpty("log.service", cfg.Log.Service)

	v.OneOf("bus.backend", cfg.Bus.Backend, busBackends)
	v.NotEmpty("bus.inTopic", cfg.Bus.InTopic)
	v.NotEmpty("bus.outTopic", cfg.Bus.OutTopic)
	if cfg.Bus.InTopic != "" && cfg.Bus.InTopic == cfg.Bus.OutTopic {
		v.AddError("bus.outTopic", "must differ from bus.inTopic", cfg.Bus.OutTopic)
	}
	if cfg.Bus.Backend == "redis" {
		v.NotEmpty("bus.group", cfg.Bus.Group)
		v.NotEmpty("bus.consumer", cfg.Bus.Consumer)
		if cfg.Bus.MaxLen < 0 {
			v.AddError("bus.maxLen", "cannot be negative", cfg.Bus.MaxLen)
		}
		v.PositiveDuration("bus.block", cfg.Bus.Block)
	}

	v.OneOf("store.backend", cfg.Store.Backend, storeBackends)
	switch cfg.Store.Backend {
	case "badger", "sqlite":
		v.NotEmpty("store.path", cfg.Store.Path)
	}
	v.NonNegativeDuration("store.retention", cfg.Store.Retention)
	if cfg.Store.Retention > 0 && (cfg.Store.Backend == "memory" || cfg.Store.Backend == "sqlite") {
		v.PositiveDuration("store.sweepInterval", cfg.Store.SweepInterval)
	}

	if cfg.UsesRedis() {
		v.HostPort("redis.addr", cfg.Redis.Addr)
		v.Range("redis.db", cfg.Redis.DB, 0, 15)
	}

	v.URL("registry.baseUrl", cfg.Registry.BaseURL, []string{"http", "https"})
	v.Custom("registry.baseUrl", cfg.Registry.BaseURL, func(any) error {
		// scheme and host problems are reported above
		if _, err := httpx.ParseServiceURL(cfg.Registry.BaseURL); errors.Is(err, httpx.ErrEmbeddedSecrets) {
			return err
		}
		return nil
	})
	v.PositiveDuration("registry.timeout", cfg.Registry.Timeout)
	v.Positive("registry.breakerThreshold", cfg.Registry.BreakerThreshold)
	v.PositiveDuration("registry.breakerReset", cfg.Registry.BreakerReset)
	v.OneOf("registry.cache", cfg.Registry.Cache, cacheBackends)
	v.NonNegativeDuration("registry.cacheTtl", cfg.Registry.CacheTTL)

	if cfg.Admin.ListenAddr != "" {
		v.HostPort("admin.listenAddr", cfg.Admin.ListenAddr)
		v.Positive("admin.requestsPerMinute", cfg.Admin.RequestsPerMin)
		v.PositiveDuration("admin.shutdownTimeout", cfg.Admin.ShutdownTimeout)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, telemetryExports)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("telemetry.samplingRate", cfg.Telemetry.SamplingRate)
	}

	v.PositiveDuration("retry.minBackoff", cfg.Retry.MinBackoff)
	if cfg.Retry.MaxBackoff < cfg.Retry.MinBackoff {
		v.AddError("retry.maxBackoff", "must not be below retry.minBackoff", cfg.Retry.MaxBackoff)
	}
	if cfg.Retry.Rate <= 0 {
		v.AddError("retry.rate", "must be positive", cfg.Retry.Rate)
	}
	v.Positive("retry.burst", cfg.Retry.Burst)

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// UsesRedis reports whether any component needs the shared redis client.
func (c AppConfig) UsesRedis() bool {
	return c.Bus.Backend == "redis" || c.Store.Backend == "redis" || c.Registry.Cache == "redis"
}
