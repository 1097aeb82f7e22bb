// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the case status domain types shared by the decoder,
// the tracker and the state store.
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status is the normalized case status published per benefit period.
type Status string

const (
	StatusOpened              Status = "OPENED"
	StatusAwaitingEmployer    Status = "AWAITING_EMPLOYER"
	StatusAwaitingCaseworker  Status = "AWAITING_CASEWORKER"
	StatusAwaitingOtherPeriod Status = "AWAITING_OTHER_PERIOD"
	StatusHandledManually     Status = "HANDLED_MANUALLY"
	StatusCompleted           Status = "COMPLETED"
)

// Terminal reports whether s ends the current case generation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusHandledManually
}

// Waiting reports whether s is one of the AWAITING_* statuses.
func (s Status) Waiting() bool {
	switch s {
	case StatusAwaitingEmployer, StatusAwaitingCaseworker, StatusAwaitingOtherPeriod:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusOpened, StatusAwaitingEmployer, StatusAwaitingCaseworker,
		StatusAwaitingOtherPeriod, StatusHandledManually, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// StatusEvent is the outbound message. Immutable once created.
type StatusEvent struct {
	BenefitPeriodID        uuid.UUID   `json:"benefitPeriodId"`
	Status                 Status      `json:"status"`
	ExternalApplicationIDs []uuid.UUID `json:"externalApplicationIds"`
	Timestamp              time.Time   `json:"timestamp"`
}

// NewStatusEvent builds a StatusEvent with a sorted, never-nil copy of ids.
func NewStatusEvent(periodID uuid.UUID, status Status, ids []uuid.UUID, at time.Time) StatusEvent {
	return StatusEvent{
		BenefitPeriodID:        periodID,
		Status:                 status,
		ExternalApplicationIDs: SortedIDs(ids),
		Timestamp:              at.UTC(),
	}
}

// SortedIDs returns a deduplicated, sorted copy of ids. Never nil.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
