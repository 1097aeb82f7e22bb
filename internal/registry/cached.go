// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/cache"
	"github.com/ManuGH/statusfeed/internal/metrics"
)

// CachingClient answers from the cache where it can and asks the inner client
// for the rest. Mappings are immutable, so entries only expire to bound size.
type CachingClient struct {
	inner Client
	cache cache.Cache
	ttl   time.Duration
}

func NewCachingClient(inner Client, c cache.Cache, ttl time.Duration) *CachingClient {
	return &CachingClient{inner: inner, cache: c, ttl: ttl}
}

func (c *CachingClient) Lookup(ctx context.Context, ids []uuid.UUID) ([]Document, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	hits := c.cache.GetMany(ctx, keys)

	docs := make([]Document, 0, len(ids))
	var missing []uuid.UUID
	for i, id := range ids {
		raw, ok := hits[keys[i]]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ext, err := uuid.Parse(raw)
		if err != nil {
			c.cache.Delete(ctx, keys[i])
			missing = append(missing, id)
			continue
		}
		docs = append(docs, Document{InternalID: id, ExternalID: ext})
	}
	metrics.RecordRegistryCache(len(docs), len(missing))
	if len(missing) == 0 {
		return docs, nil
	}

	fetched, err := c.inner.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, d := range fetched {
		c.cache.Set(ctx, d.InternalID.String(), d.ExternalID.String(), c.ttl)
	}
	return append(docs, fetched...), nil
}
