// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/ManuGH/statusfeed/internal/bus"
	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

type fakeDelivery struct {
	msg   bus.Message
	acked atomic.Bool
}

func (d *fakeDelivery) Message() bus.Message { return d.msg }
func (d *fakeDelivery) Ack(context.Context) error {
	d.acked.Store(true)
	return nil
}

type fakeSub struct {
	ch   chan bus.Delivery
	once sync.Once
}

func newFakeSub() *fakeSub { return &fakeSub{ch: make(chan bus.Delivery, 16)} }

func (s *fakeSub) C() <-chan bus.Delivery { return s.ch }
func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

func (s *fakeSub) push(payload string) *fakeDelivery {
	d := &fakeDelivery{msg: bus.Message{ID: uuid.NewString(), Payload: []byte(payload)}}
	s.ch <- d
	return d
}

type fakeHandler struct {
	mu       sync.Mutex
	seen     []model.Event
	failures int
}

func (h *fakeHandler) Handle(_ context.Context, ev model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, ev)
	if h.failures > 0 {
		h.failures--
		return errors.New("downstream unavailable")
	}
	return nil
}

func (h *fakeHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func closedPayload() string {
	return fmt.Sprintf(`{"@event_name":"behandling_lukket","@id":%q,"vedtaksperiodeId":%q,"behandlingId":%q}`,
		uuid.New(), uuid.New(), uuid.New())
}

var fastRetry = Options{MinBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond, RetryRate: rate.Inf}

func runConsumer(t *testing.T, c *Consumer) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return func() error {
		stop()
		return <-done
	}
}

func TestConsumerAcksHandledEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := newFakeSub()
	h := &fakeHandler{}
	c := New(sub, h, fastRetry)
	stop := runConsumer(t, c)

	d1 := sub.push(closedPayload())
	d2 := sub.push(closedPayload())

	require.Eventually(t, func() bool { return d1.acked.Load() && d2.acked.Load() }, time.Second, time.Millisecond)
	require.NoError(t, stop())
	assert.Equal(t, 2, h.calls())
	assert.Equal(t, int64(2), c.Processed())
	assert.False(t, c.LastHandled().IsZero())
}

func TestConsumerSkipsInvalidAndUnknownEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := newFakeSub()
	h := &fakeHandler{}
	c := New(sub, h, fastRetry)
	stop := runConsumer(t, c)

	invalid := sub.push(`{"@event_name":"behandling_lukket","@id":"not-a-uuid"}`)
	garbage := sub.push(`not json`)
	unknown := sub.push(`{"@event_name":"something_else","@id":"x"}`)

	require.Eventually(t, func() bool {
		return invalid.acked.Load() && garbage.acked.Load() && unknown.acked.Load()
	}, time.Second, time.Millisecond)
	require.NoError(t, stop())
	assert.Zero(t, h.calls())
}

func TestConsumerRetriesUntilHandlerSucceeds(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := newFakeSub()
	h := &fakeHandler{failures: 3}
	c := New(sub, h, fastRetry)
	stop := runConsumer(t, c)

	first := sub.push(closedPayload())
	second := sub.push(closedPayload())

	require.Eventually(t, func() bool { return second.acked.Load() }, 2*time.Second, time.Millisecond)
	require.NoError(t, stop())

	assert.True(t, first.acked.Load())
	require.Equal(t, 5, h.calls())
	// The same event is retried before the next one is looked at.
	for i := 1; i < 4; i++ {
		assert.Equal(t, h.seen[0].ID(), h.seen[i].ID())
	}
	assert.NotEqual(t, h.seen[0].ID(), h.seen[4].ID())
}

func TestConsumerStopsRetryingOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := newFakeSub()
	h := &fakeHandler{failures: 1 << 30}
	c := New(sub, h, Options{MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond, RetryRate: rate.Inf})
	stop := runConsumer(t, c)

	d := sub.push(closedPayload())
	require.Eventually(t, func() bool { return h.calls() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, stop())
	assert.False(t, d.acked.Load(), "failed delivery must stay unacknowledged")
}

func TestConsumerReturnsErrorWhenSubscriptionCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := newFakeSub()
	c := New(sub, &fakeHandler{}, fastRetry)
	require.NoError(t, sub.Close())

	err := c.Run(context.Background())
	require.Error(t, err)
}

func TestConsumerWithMemoryBus(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := bus.NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "events")
	require.NoError(t, err)
	defer sub.Close()

	h := &fakeHandler{}
	c := New(sub, h, fastRetry)
	stop := runConsumer(t, c)

	require.NoError(t, b.Publish(context.Background(), "events", bus.Message{Payload: []byte(closedPayload())}))
	require.Eventually(t, func() bool { return c.Processed() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, stop())
	assert.Equal(t, 1, h.calls())
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MinBackoff: time.Second, MaxBackoff: time.Millisecond}.withDefaults()
	assert.Equal(t, time.Second, o.MaxBackoff)
	assert.Equal(t, rate.Limit(5), o.RetryRate)
	assert.Equal(t, 1, o.RetryBurst)
}
