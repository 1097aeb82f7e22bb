// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"time"

	"github.com/google/uuid"
)

// Inbound event discriminators as they appear in "@event_name".
const (
	EventCaseOpened     = "behandling_opprettet"
	EventPeriodsWaiting = "vedtaksperioder_venter"
	EventCaseClosed     = "behandling_lukket"
	EventCaseDiscarded  = "behandling_forkastet"
)

// Event is the closed set of inbound events. Only types in this package
// implement it.
type Event interface {
	Name() string
	ID() uuid.UUID
	isEvent()
}

// Meta carries the envelope fields shared by all inbound events.
type Meta struct {
	EventID   uuid.UUID
	CreatedAt time.Time // zero when the producer did not set it
}

func (m Meta) ID() uuid.UUID { return m.EventID }

// CaseOpened: a new processing case was created for a period.
type CaseOpened struct {
	Meta
	PeriodID       uuid.UUID
	CaseID         uuid.UUID
	ApplicationIDs []uuid.UUID
}

// PeriodsWaiting: one or more periods report what they are waiting on.
type PeriodsWaiting struct {
	Meta
	Periods []WaitSnapshot
}

// CaseClosed: the case was completed by automatic processing.
type CaseClosed struct {
	Meta
	PeriodID uuid.UUID
	CaseID   uuid.UUID
}

// CaseDiscarded: the case left automatic processing.
type CaseDiscarded struct {
	Meta
	PeriodID uuid.UUID
	CaseID   uuid.UUID
}

func (CaseOpened) Name() string     { return EventCaseOpened }
func (PeriodsWaiting) Name() string { return EventPeriodsWaiting }
func (CaseClosed) Name() string     { return EventCaseClosed }
func (CaseDiscarded) Name() string  { return EventCaseDiscarded }

func (CaseOpened) isEvent()     {}
func (PeriodsWaiting) isEvent() {}
func (CaseClosed) isEvent()     {}
func (CaseDiscarded) isEvent()  {}
