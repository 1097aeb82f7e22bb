// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/metrics"
)

// MemoryBus is an in-memory pub/sub used for unit tests and local runs.
// It is not durable: acknowledgements are no-ops and nothing is redelivered.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]*memSub
	seq  atomic.Uint64
}

const dropLogEvery = 100

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub)}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	msg.ID = strconv.FormatUint(b.seq.Add(1), 10)

	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		if err := sub.deliver(ctx, memDelivery{msg: msg}); err != nil {
			reason := publishDropReason(err)
			metrics.IncBusDropReason(topic, reason)
			count := dropCount.Add(1)
			if count%dropLogEvery == 0 {
				log.L().Warn().
					Str(log.FieldEvent, "bus.publish_dropped").
					Str(log.FieldTopic, topic).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, err)
		}
	}
	metrics.IncBusPublished(topic, "memory")
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	sub := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan Delivery, 64),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return sub, nil
}

func (b *MemoryBus) Ping(context.Context) error { return nil }

type memDelivery struct {
	msg Message
}

func (d memDelivery) Message() Message          { return d.msg }
func (d memDelivery) Ack(context.Context) error { return nil }

// memSub guards ch with sendMu: senders hold the read lock, Close takes the
// write lock before closing ch, and done releases senders blocked on a full
// channel.
type memSub struct {
	b      *MemoryBus
	topic  string
	ch     chan Delivery
	done   chan struct{}
	sendMu sync.RWMutex
	closed bool
	once   sync.Once
}

// deliver drops d silently when the subscription is closed; a gone
// subscriber is not a publish failure.
func (s *memSub) deliver(ctx context.Context, d Delivery) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- d:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) C() <-chan Delivery {
	return s.ch
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()

		close(s.done)
		s.sendMu.Lock()
		s.closed = true
		close(s.ch) // Signal subscriber to stop
		s.sendMu.Unlock()
	})
	return nil
}

// Ensure compliance
var _ Bus = (*MemoryBus)(nil)
