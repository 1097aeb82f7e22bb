// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package publisher writes status events to the outbound topic.
package publisher

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/ManuGH/statusfeed/internal/bus"
	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/metrics"
)

// Publisher emits status events. Publish returns only once the transport has
// accepted the message.
type Publisher interface {
	Publish(ctx context.Context, ev model.StatusEvent) error
}

// BusPublisher publishes JSON status events keyed by benefit period id, so
// every status of one period lands on the same partition in order.
type BusPublisher struct {
	bus   bus.Bus
	topic string
}

func NewBusPublisher(b bus.Bus, topic string) *BusPublisher {
	return &BusPublisher{bus: b, topic: topic}
}

func (p *BusPublisher) Publish(ctx context.Context, ev model.StatusEvent) error {
	if ev.ExternalApplicationIDs == nil {
		ev.ExternalApplicationIDs = model.SortedIDs(nil)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	msg := bus.Message{Key: ev.BenefitPeriodID.String(), Payload: payload}
	if err := p.bus.Publish(ctx, p.topic, msg); err != nil {
		metrics.RecordPublishFailure()
		return fmt.Errorf("publish %s for period %s: %w", ev.Status, ev.BenefitPeriodID, err)
	}
	metrics.RecordPublished(string(ev.Status))
	return nil
}
