// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package consumer drives the inbound event loop: decode, handle, acknowledge.
package consumer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/statusfeed/internal/bus"
	"github.com/ManuGH/statusfeed/internal/casestatus/decode"
	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/metrics"
)

// Handler processes one decoded event. An error means the event must be
// delivered again.
type Handler interface {
	Handle(ctx context.Context, ev model.Event) error
}

// Outcome labels for consumed events.
const (
	OutcomeHandled = "handled"
	OutcomeInvalid = "invalid"
	OutcomeIgnored = "ignored"
	OutcomeRetried = "retried"
)

// Options tunes the retry behaviour of a Consumer.
type Options struct {
	// MinBackoff is the wait before the first retry; it doubles per attempt.
	MinBackoff time.Duration
	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration
	// RetryRate bounds retries per second across all messages.
	RetryRate  rate.Limit
	RetryBurst int
}

func (o Options) withDefaults() Options {
	if o.MinBackoff <= 0 {
		o.MinBackoff = 200 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = o.MinBackoff
	}
	if o.RetryRate <= 0 {
		o.RetryRate = 5
	}
	if o.RetryBurst <= 0 {
		o.RetryBurst = 1
	}
	return o
}

// Consumer processes deliveries strictly one at a time. A delivery is
// acknowledged only after its handler succeeded, or when it can never succeed
// (invalid or unknown payloads).
type Consumer struct {
	sub     bus.Subscriber
	handler Handler
	opts    Options
	limiter *rate.Limiter

	lastHandled atomic.Int64 // unix nanos
	processed   atomic.Int64
}

func New(sub bus.Subscriber, h Handler, opts Options) *Consumer {
	opts = opts.withDefaults()
	return &Consumer{
		sub:     sub,
		handler: h,
		opts:    opts,
		limiter: rate.NewLimiter(opts.RetryRate, opts.RetryBurst),
	}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	logger := log.WithComponent("consumer")
	logger.Info().Str(log.FieldEvent, "consumer.started").Msg("consumer started")
	defer logger.Info().Str(log.FieldEvent, "consumer.stopped").Int64("processed", c.processed.Load()).Msg("consumer stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-c.sub.C():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("subscription closed")
			}
			if err := c.process(ctx, d); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// LastHandled returns when the last delivery was acknowledged, zero before
// the first one.
func (c *Consumer) LastHandled() time.Time {
	n := c.lastHandled.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Processed returns the number of acknowledged deliveries.
func (c *Consumer) Processed() int64 { return c.processed.Load() }

func (c *Consumer) process(ctx context.Context, d bus.Delivery) error {
	msg := d.Message()
	ctx = log.ContextWithCorrelationID(ctx, msg.ID)
	logger := log.WithComponentFromContext(ctx, "consumer")

	ev, err := decode.Decode(msg.Payload)
	switch {
	case errors.Is(err, decode.ErrUnknownEvent):
		name, _ := decode.Name(msg.Payload)
		metrics.RecordEvent(name, OutcomeIgnored)
		logger.Debug().
			Str(log.FieldEvent, "consumer.ignored").
			Str(log.FieldEventName, name).
			Msg("ignoring unhandled event")
		return c.ack(ctx, d)
	case err != nil:
		var verr *decode.ValidationError
		name := ""
		if errors.As(err, &verr) {
			name = verr.EventName
		}
		metrics.RecordEvent(name, OutcomeInvalid)
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "consumer.invalid").
			Str(log.FieldEventName, name).
			Msg("dropping invalid event")
		return c.ack(ctx, d)
	}

	ctx = log.ContextWithEventID(ctx, ev.ID().String())
	if err := c.handle(ctx, ev); err != nil {
		return err
	}
	metrics.RecordEvent(ev.Name(), OutcomeHandled)
	return c.ack(ctx, d)
}

// handle runs the handler until it succeeds or ctx is done.
func (c *Consumer) handle(ctx context.Context, ev model.Event) error {
	backoff := c.opts.MinBackoff
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := c.handler.Handle(ctx, ev)
		metrics.HandleDuration.WithLabelValues(ev.Name()).Observe(time.Since(start).Seconds())
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.RecordRetry(ev.Name())
		metrics.RecordEvent(ev.Name(), OutcomeRetried)
		logger := log.WithComponentFromContext(ctx, "consumer")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "consumer.handle_failed").
			Str(log.FieldEventName, ev.Name()).
			Int(log.FieldAttempt, attempt).
			Dur("backoff", backoff).
			Msg("event handling failed, retrying")

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = min(backoff*2, c.opts.MaxBackoff)
	}
}

func (c *Consumer) ack(ctx context.Context, d bus.Delivery) error {
	if err := d.Ack(ctx); err != nil {
		// The transport will redeliver; handlers tolerate repeats.
		logger := log.WithComponentFromContext(ctx, "consumer")
		logger.Warn().Err(err).Str(log.FieldEvent, "consumer.ack_failed").Msg("acknowledge failed")
	}
	c.processed.Add(1)
	c.lastHandled.Store(time.Now().UnixNano())
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
