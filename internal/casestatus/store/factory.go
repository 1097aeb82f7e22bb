// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by OpenStateStore.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSqlite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Path      string // directory for badger, file for sqlite
	Redis     redis.UniversalClient
	KeyPrefix string
	Retention time.Duration // 0 keeps records forever; honoured by badger and redis
}

// OpenStateStore opens the configured backend wrapped with metrics.
func OpenStateStore(ctx context.Context, opts Options) (StateStore, error) {
	var (
		inner StateStore
		err   error
	)
	switch opts.Backend {
	case "", BackendMemory:
		inner = NewMemoryStore()
		opts.Backend = BackendMemory
	case BackendBadger:
		if opts.Path == "" {
			return nil, fmt.Errorf("store backend %q requires a path", opts.Backend)
		}
		inner, err = OpenBadgerStore(opts.Path, opts.Retention)
	case BackendSqlite:
		if opts.Path == "" {
			return nil, fmt.Errorf("store backend %q requires a path", opts.Backend)
		}
		if mkErr := os.MkdirAll(filepath.Dir(opts.Path), 0o750); mkErr != nil {
			return nil, fmt.Errorf("create store dir: %w", mkErr)
		}
		inner, err = OpenSqliteStore(ctx, opts.Path)
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("store backend %q requires a redis client", opts.Backend)
		}
		inner = NewRedisStore(opts.Redis, opts.KeyPrefix, opts.Retention)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumentedStore(inner, opts.Backend), nil
}
