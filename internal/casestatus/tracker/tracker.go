// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tracker turns inbound case events into published case statuses.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/casestatus/publisher"
	"github.com/ManuGH/statusfeed/internal/casestatus/store"
	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/metrics"
	"github.com/ManuGH/statusfeed/internal/registry"
	"github.com/ManuGH/statusfeed/internal/telemetry"
)

// maxUnknownPeriods bounds the statuses remembered for periods that have no
// stored case. The map is reset when full.
const maxUnknownPeriods = 10000

// Tracker handles one event at a time. It is not meant to be called
// concurrently for the same period; the consumer loop is sequential.
type Tracker struct {
	cases     *store.Cases
	registry  registry.Client
	publisher publisher.Publisher
	now       func() time.Time
	tracer    trace.Tracer

	// Last status published for periods without a stored case. The store
	// never creates such periods, so repeated waits are deduplicated here.
	unknownMu sync.Mutex
	unknown   map[uuid.UUID]model.Status
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the timestamp source of published events.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(cases *store.Cases, reg registry.Client, pub publisher.Publisher, opts ...Option) *Tracker {
	t := &Tracker{
		cases:     cases,
		registry:  reg,
		publisher: pub,
		now:       time.Now,
		tracer:    telemetry.Tracer("statusfeed/tracker"),
		unknown:   make(map[uuid.UUID]model.Status),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle dispatches ev to its handler. A returned error means the event was
// not fully processed and must be delivered again.
func (t *Tracker) Handle(ctx context.Context, ev model.Event) (err error) {
	ctx, span := t.tracer.Start(ctx, "tracker."+ev.Name(),
		trace.WithAttributes(telemetry.EventAttributes(ev.Name(), ev.ID().String())...))
	defer func() {
		telemetry.RecordError(span, err, "handle")
		span.End()
	}()

	switch e := ev.(type) {
	case model.CaseOpened:
		return t.HandleCaseOpened(ctx, e)
	case model.PeriodsWaiting:
		return t.HandlePeriodsWaiting(ctx, e)
	case model.CaseClosed:
		return t.HandleCaseClosed(ctx, e)
	case model.CaseDiscarded:
		return t.HandleCaseDiscarded(ctx, e)
	default:
		return fmt.Errorf("no handler for %T", ev)
	}
}

// HandleCaseOpened starts a new case generation and publishes OPENED.
// The registry is asked first so a failed lookup leaves the store untouched,
// and the generation is stored together with its external ids.
func (t *Tracker) HandleCaseOpened(ctx context.Context, ev model.CaseOpened) error {
	external, err := registry.ExternalIDs(ctx, t.registry, ev.ApplicationIDs)
	if err != nil {
		return fmt.Errorf("resolve applications of period %s: %w", ev.PeriodID, err)
	}

	st, err := t.cases.OpenCase(ctx, ev.PeriodID, ev.CaseID, ev.ApplicationIDs, external)
	if err != nil {
		return err
	}
	t.forgetUnknown(ev.PeriodID)

	t.logger(ctx, ev.PeriodID).Debug().
		Str(log.FieldEvent, "tracker.case_opened").
		Str(log.FieldCaseID, ev.CaseID.String()).
		Int(log.FieldGeneration, st.Generation).
		Int("external_ids", len(external)).
		Msg("case generation started")

	return t.publish(ctx, ev.PeriodID, model.StatusOpened)
}

// HandlePeriodsWaiting publishes one wait status per snapshot, in order.
// A failure stops the batch; statuses already published stay published.
func (t *Tracker) HandlePeriodsWaiting(ctx context.Context, ev model.PeriodsWaiting) error {
	for w, status := range Classifications(ev.Periods) {
		if err := t.publishWait(ctx, w, status); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) publishWait(ctx context.Context, w model.WaitSnapshot, status model.Status) error {
	period := w.ReportingPeriodID
	st, err := t.cases.Lookup(ctx, period)
	if err != nil {
		return err
	}

	logger := t.logger(ctx, period)
	last := t.lastUnknown(period)
	if st != nil {
		last = st.LastStatus
	} else {
		logger.Info().
			Str(log.FieldEvent, "tracker.unknown_period").
			Str(log.FieldStatus, string(status)).
			Msg("wait for period without an opened case")
	}
	if last == status {
		// Upstream repeats waiting snapshots; the status did not change.
		metrics.RecordWaitSuppressed(string(status))
		logger.Debug().
			Str(log.FieldEvent, "tracker.wait_unchanged").
			Str(log.FieldStatus, string(status)).
			Msg("wait status unchanged, not republished")
		return nil
	}
	return t.emit(ctx, period, status, st)
}

// HandleCaseClosed publishes COMPLETED, also for repeated deliveries.
func (t *Tracker) HandleCaseClosed(ctx context.Context, ev model.CaseClosed) error {
	return t.publish(ctx, ev.PeriodID, model.StatusCompleted)
}

// HandleCaseDiscarded publishes HANDLED_MANUALLY, also for repeated deliveries.
func (t *Tracker) HandleCaseDiscarded(ctx context.Context, ev model.CaseDiscarded) error {
	return t.publish(ctx, ev.PeriodID, model.StatusHandledManually)
}

// publish sends status with the current snapshot of external ids.
func (t *Tracker) publish(ctx context.Context, period uuid.UUID, status model.Status) error {
	st, err := t.cases.Lookup(ctx, period)
	if err != nil {
		return err
	}
	return t.emit(ctx, period, status, st)
}

// emit publishes status with the external ids of st. A nil st is a period
// without a stored case: the event carries no ids and the status is
// remembered in memory instead of the store.
func (t *Tracker) emit(ctx context.Context, period uuid.UUID, status model.Status, st *model.PeriodState) error {
	var ids []uuid.UUID
	if st != nil {
		ids = st.ExternalApplicationIDs
	}

	ctx, span := t.tracer.Start(ctx, "tracker.publish",
		trace.WithAttributes(telemetry.PublishAttributes(period.String(), string(status))...))
	defer span.End()

	ev := model.NewStatusEvent(period, status, ids, t.now())
	if err := t.publisher.Publish(ctx, ev); err != nil {
		telemetry.RecordError(span, err, "publish")
		return err
	}
	if st == nil {
		t.rememberUnknown(period, status)
	} else if err := t.cases.RecordPublished(ctx, period, status); err != nil {
		telemetry.RecordError(span, err, "store")
		return err
	}

	t.logger(ctx, period).Info().
		Str(log.FieldEvent, "tracker.status_published").
		Str(log.FieldStatus, string(status)).
		Int("external_ids", len(ev.ExternalApplicationIDs)).
		Msg("status published")
	return nil
}

func (t *Tracker) lastUnknown(period uuid.UUID) model.Status {
	t.unknownMu.Lock()
	defer t.unknownMu.Unlock()
	return t.unknown[period]
}

func (t *Tracker) rememberUnknown(period uuid.UUID, status model.Status) {
	t.unknownMu.Lock()
	defer t.unknownMu.Unlock()
	if _, ok := t.unknown[period]; !ok && len(t.unknown) >= maxUnknownPeriods {
		clear(t.unknown)
	}
	t.unknown[period] = status
}

func (t *Tracker) forgetUnknown(period uuid.UUID) {
	t.unknownMu.Lock()
	defer t.unknownMu.Unlock()
	delete(t.unknown, period)
}

func (t *Tracker) logger(ctx context.Context, period uuid.UUID) *zerolog.Logger {
	l := log.WithComponentFromContext(ctx, "tracker").With().
		Str(log.FieldPeriodID, period.String()).
		Logger()
	return &l
}
