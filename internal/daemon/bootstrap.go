// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles the runtime from configuration and owns its
// lifecycle.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/statusfeed/internal/admin"
	"github.com/ManuGH/statusfeed/internal/bus"
	"github.com/ManuGH/statusfeed/internal/cache"
	"github.com/ManuGH/statusfeed/internal/casestatus/publisher"
	"github.com/ManuGH/statusfeed/internal/casestatus/store"
	"github.com/ManuGH/statusfeed/internal/casestatus/tracker"
	"github.com/ManuGH/statusfeed/internal/config"
	"github.com/ManuGH/statusfeed/internal/consumer"
	"github.com/ManuGH/statusfeed/internal/health"
	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/platform/httpx"
	"github.com/ManuGH/statusfeed/internal/registry"
	"github.com/ManuGH/statusfeed/internal/resilience"
	"github.com/ManuGH/statusfeed/internal/telemetry"
)

// Runtime holds every long-lived component built from one configuration.
type Runtime struct {
	Config     config.AppConfig
	Store      store.StateStore
	Cases      *store.Cases
	Bus        bus.Bus
	Subscriber bus.Subscriber
	Registry   *registry.HTTPClient
	Tracker    *tracker.Tracker
	Consumer   *consumer.Consumer
	Health     *health.Manager
	Admin      http.Handler

	logger zerolog.Logger
	hooks  shutdownHooks
}

// Build opens every component. On error, whatever was already opened is
// closed again.
func Build(ctx context.Context, cfg config.AppConfig) (_ *Runtime, err error) {
	logger := log.WithComponent("daemon")
	rt := &Runtime{
		Config: cfg,
		logger: logger,
		hooks:  shutdownHooks{logger: logger},
	}
	defer func() {
		if err != nil {
			_ = rt.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	if err := health.PerformStartupChecks(cfg); err != nil {
		return nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.hooks.register("telemetry", tp.Shutdown)

	var rdb redis.UniversalClient
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.hooks.register("redis", func(context.Context) error { return rdb.Close() })
	}

	rt.Store, err = store.OpenStateStore(ctx, store.Options{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		Redis:     rdb,
		KeyPrefix: cfg.Store.KeyPrefix,
		Retention: cfg.Store.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.hooks.register("store", func(context.Context) error { return rt.Store.Close() })
	rt.Cases = store.NewCases(rt.Store)

	switch cfg.Bus.Backend {
	case "memory":
		rt.Bus = bus.NewMemoryBus()
	case "redis":
		rt.Bus = bus.NewRedisStreamBus(rdb, bus.RedisStreamOptions{
			Group:    cfg.Bus.Group,
			Consumer: cfg.Bus.Consumer,
			MaxLen:   cfg.Bus.MaxLen,
			Block:    cfg.Bus.Block,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBus, cfg.Bus.Backend)
	}

	rt.Registry = registry.NewHTTPClient(registry.HTTPConfig{
		BaseURL:          cfg.Registry.BaseURL,
		Token:            cfg.Registry.Token,
		Timeout:          cfg.Registry.Timeout,
		BreakerThreshold: cfg.Registry.BreakerThreshold,
		BreakerReset:     cfg.Registry.BreakerReset,
	})
	docs, docCache, err := rt.registryClient(rdb)
	if err != nil {
		return nil, err
	}

	rt.Tracker = tracker.New(rt.Cases, docs, publisher.NewBusPublisher(rt.Bus, cfg.Bus.OutTopic))

	rt.Subscriber, err = rt.Bus.Subscribe(ctx, cfg.Bus.InTopic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", cfg.Bus.InTopic, err)
	}
	rt.hooks.register("subscriber", func(context.Context) error { return rt.Subscriber.Close() })

	rt.Consumer = consumer.New(rt.Subscriber, rt.Tracker, consumer.Options{
		MinBackoff: cfg.Retry.MinBackoff,
		MaxBackoff: cfg.Retry.MaxBackoff,
		RetryRate:  rate.Limit(cfg.Retry.Rate),
		RetryBurst: cfg.Retry.Burst,
	})

	rt.Health = health.NewManager(cfg.Version)
	rt.registerChecks(docCache)
	rt.Admin = admin.NewRouter(admin.Deps{
		Health:            rt.Health,
		Periods:           rt.Cases,
		RequestsPerMinute: cfg.Admin.RequestsPerMin,
	})

	logger.Info().
		Str(log.FieldBackend, cfg.Store.Backend).
		Str("bus", cfg.Bus.Backend).
		Str(log.FieldTopic, cfg.Bus.InTopic).
		Str("out_topic", cfg.Bus.OutTopic).
		Str(log.FieldBaseURL, httpx.SanitizeURL(cfg.Registry.BaseURL)).
		Msg("runtime assembled")
	return rt, nil
}

// registryClient wraps the HTTP client with the configured cache.
func (rt *Runtime) registryClient(rdb redis.UniversalClient) (registry.Client, cache.Cache, error) {
	cfg := rt.Config.Registry
	var c cache.Cache
	switch cfg.Cache {
	case "", "none":
		return rt.Registry, nil, nil
	case "memory":
		c = cache.NewMemoryCache(time.Minute)
	case "redis":
		c = cache.NewRedisCache(rdb, "", log.WithComponent("cache"))
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCache, cfg.Cache)
	}
	rt.hooks.register("registry_cache", func(context.Context) error { return c.Close() })
	return registry.NewCachingClient(rt.Registry, c, cfg.CacheTTL), c, nil
}

func (rt *Runtime) registerChecks(docCache cache.Cache) {
	rt.Health.RegisterChecker(health.NewPingChecker("store", rt.Store.Ping))
	if p, ok := rt.Bus.(bus.Pinger); ok {
		rt.Health.RegisterChecker(health.NewPingChecker("bus", p.Ping))
	}
	// An open breaker means lookups fail fast; events are retried, so the
	// service stays ready.
	rt.Health.RegisterChecker(health.NewStateChecker("registry_breaker",
		func() string { return string(rt.Registry.Breaker().State()) },
		map[string]health.Status{
			string(resilience.StateOpen):     health.StatusDegraded,
			string(resilience.StateHalfOpen): health.StatusDegraded,
		}))
	if rc, ok := docCache.(*cache.RedisCache); ok {
		rt.Health.RegisterChecker(health.Informational(health.NewPingChecker("registry_cache", rc.HealthCheck)))
	}
	rt.Health.RegisterChecker(health.NewLastActivityChecker(rt.Consumer.LastHandled, 0))
}

// Shutdown releases every component in reverse order of creation.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	timeout := rt.Config.Admin.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return rt.hooks.run(ctx)
}
