// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

const redisMaxTxRetries = 5

// RedisStore keeps one JSON value per period. Updates use WATCH/MULTI so a
// concurrent writer forces a retry instead of a lost update.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "statusfeed:period:"
	}
	return &RedisStore{client: client, prefix: prefix, retention: retention}
}

func (s *RedisStore) key(id uuid.UUID) string { return s.prefix + id.String() }

func (s *RedisStore) GetPeriod(ctx context.Context, id uuid.UUID) (*model.PeriodState, error) {
	return s.read(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c getter, id uuid.UUID) (*model.PeriodState, error) {
	raw, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st model.PeriodState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode period %s: %w", id, err)
	}
	return &st, nil
}

func (s *RedisStore) UpdatePeriod(ctx context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (*model.PeriodState, error) {
	key := s.key(id)
	var out *model.PeriodState

	txf := func(tx *redis.Tx) error {
		cur, err := s.read(ctx, tx, id)
		if err != nil {
			return err
		}
		work := &model.PeriodState{PeriodID: id}
		if cur != nil {
			work = cur.Clone()
		}
		write, err := apply(work, fn)
		if err != nil {
			return err
		}
		if !write {
			out = cur
			return nil
		}
		buf, err := json.Marshal(work)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, expiryFor(work, s.retention))
			return nil
		})
		if err != nil {
			return err
		}
		out = work
		return nil
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update period %s: %w", id, redis.TxFailedErr)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op: the client is shared with other components and closed by
// its owner.
func (s *RedisStore) Close() error { return nil }

// expiryFor returns the TTL of a write. Zero clears any TTL a record picked
// up while it was terminal, which matters once a case is reopened.
func expiryFor(st *model.PeriodState, retention time.Duration) time.Duration {
	if retention > 0 && st.LastStatus.Terminal() {
		return retention
	}
	return 0
}
