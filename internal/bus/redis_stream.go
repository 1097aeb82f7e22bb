// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/metrics"
)

const (
	fieldKey     = "key"
	fieldPayload = "payload"
)

// RedisStreamOptions configures a RedisStreamBus.
type RedisStreamOptions struct {
	Group     string        // consumer group shared by all replicas
	Consumer  string        // this replica's consumer name
	MaxLen    int64         // approximate stream cap on publish, 0 = unbounded
	Block     time.Duration // XREADGROUP block time
	BatchSize int64
}

func (o RedisStreamOptions) withDefaults() RedisStreamOptions {
	if o.Group == "" {
		o.Group = "statusfeed"
	}
	if o.Consumer == "" {
		o.Consumer = "statusfeed-0"
	}
	if o.Block <= 0 {
		o.Block = 500 * time.Millisecond
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	return o
}

// RedisStreamBus maps topics onto Redis streams. Subscriptions read through a
// consumer group; entries stay pending until acknowledged and are read again
// from the pending list when the consumer resubscribes.
type RedisStreamBus struct {
	client redis.UniversalClient
	opts   RedisStreamOptions
	logger zerolog.Logger
}

func NewRedisStreamBus(client redis.UniversalClient, opts RedisStreamOptions) *RedisStreamBus {
	return &RedisStreamBus{
		client: client,
		opts:   opts.withDefaults(),
		logger: log.WithComponent("bus"),
	}
}

func (b *RedisStreamBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{fieldKey: msg.Key, fieldPayload: msg.Payload},
	}
	if b.opts.MaxLen > 0 {
		args.MaxLen = b.opts.MaxLen
		args.Approx = true
	}
	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		if ctx.Err() != nil {
			metrics.IncBusDropReason(topic, publishDropReason(ctx.Err()))
		}
		return fmt.Errorf("publish topic %q: %w", topic, err)
	}
	metrics.IncBusPublished(topic, "redis")
	return nil
}

func (b *RedisStreamBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	err := b.client.XGroupCreateMkStream(ctx, topic, b.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %q on %q: %w", b.opts.Group, topic, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &redisSub{
		bus:    b,
		topic:  topic,
		ch:     make(chan Delivery, b.opts.BatchSize),
		cancel: cancel,
	}
	s.wg.Add(1)
	go s.run(readCtx)
	return s, nil
}

func (b *RedisStreamBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

type redisSub struct {
	bus    *RedisStreamBus
	topic  string
	ch     chan Delivery
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func (s *redisSub) C() <-chan Delivery { return s.ch }

func (s *redisSub) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
	return nil
}

func (s *redisSub) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.ch)

	opts := s.bus.opts
	logger := s.bus.logger.With().Str(log.FieldTopic, s.topic).Logger()

	// Pending entries of this consumer are replayed first, starting after
	// cursor; ">" then reads entries never delivered to the group.
	cursor := "0"
	replaying := true
	backoff := 100 * time.Millisecond

	for ctx.Err() == nil {
		args := &redis.XReadGroupArgs{
			Group:    opts.Group,
			Consumer: opts.Consumer,
			Streams:  []string{s.topic, cursor},
			Count:    opts.BatchSize,
		}
		if !replaying {
			args.Block = opts.Block
		}
		streams, err := s.bus.client.XReadGroup(ctx, args).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if replaying {
				replaying = false
				cursor = ">"
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).
				Str(log.FieldEvent, "bus.read_failed").
				Dur("retry_in", backoff).
				Msg("stream read failed")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, 5*time.Second)
			continue
		}
		backoff = 100 * time.Millisecond

		var n int
		for _, st := range streams {
			for _, xm := range st.Messages {
				n++
				if replaying {
					cursor = xm.ID
					metrics.IncBusRedelivered(s.topic)
				}
				d := &redisDelivery{sub: s, msg: toMessage(xm)}
				select {
				case s.ch <- d:
				case <-ctx.Done():
					return
				}
			}
		}
		if replaying && n == 0 {
			replaying = false
			cursor = ">"
		}
	}
}

func toMessage(xm redis.XMessage) Message {
	msg := Message{ID: xm.ID}
	if v, ok := xm.Values[fieldKey].(string); ok {
		msg.Key = v
	}
	if v, ok := xm.Values[fieldPayload].(string); ok {
		msg.Payload = []byte(v)
	}
	return msg
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type redisDelivery struct {
	sub *redisSub
	msg Message
}

func (d *redisDelivery) Message() Message { return d.msg }

func (d *redisDelivery) Ack(ctx context.Context) error {
	b := d.sub.bus
	if err := b.client.XAck(ctx, d.sub.topic, b.opts.Group, d.msg.ID).Err(); err != nil {
		return fmt.Errorf("ack %s on %q: %w", d.msg.ID, d.sub.topic, err)
	}
	return nil
}

var _ Bus = (*RedisStreamBus)(nil)
