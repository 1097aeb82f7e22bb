// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus moves keyed messages between the consumer, the publisher and
// the outside world.
package bus

import "context"

// Message is one keyed record on a topic. Messages with the same Key are
// delivered in publish order.
type Message struct {
	ID      string // assigned by the transport, empty on publish
	Key     string
	Payload []byte
}

// Delivery is a received message that must be acknowledged once processed.
// Unacknowledged deliveries are handed out again after a resubscribe on
// transports that support it.
type Delivery interface {
	Message() Message
	Ack(ctx context.Context) error
}

// Subscriber delivers messages for a single topic subscription.
type Subscriber interface {
	C() <-chan Delivery
	Close() error
}

// Bus is the transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Pinger is implemented by transports that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
