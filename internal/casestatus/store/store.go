// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store keeps the per-period case state the tracker derives its
// publishes from.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

// ErrSkip may be returned by an UpdatePeriod callback to leave the stored
// record untouched. UpdatePeriod then returns the current record (nil when the
// period is unknown) and no error.
var ErrSkip = errors.New("store: skip write")

// StateStore is the persistence contract implemented by every backend.
type StateStore interface {
	// GetPeriod returns (nil, nil) when the period is unknown.
	GetPeriod(ctx context.Context, id uuid.UUID) (*model.PeriodState, error)
	// UpdatePeriod runs fn against the current record and persists the result
	// atomically. An unknown period is passed in as a zero record carrying only
	// PeriodID (Generation 0).
	UpdatePeriod(ctx context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (*model.PeriodState, error)
	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by backends without native expiry. SweepTerminal
// removes periods whose last published status is terminal and that were not
// touched since before.
type Sweeper interface {
	SweepTerminal(ctx context.Context, before time.Time) (int, error)
}

// ErrSweepUnsupported is returned by SweepTerminal on backends that expire
// records on their own.
var ErrSweepUnsupported = errors.New("store: backend does not sweep")

// apply runs fn on st and reports whether the result must be written.
func apply(st *model.PeriodState, fn func(*model.PeriodState) error) (bool, error) {
	if err := fn(st); err != nil {
		if errors.Is(err, ErrSkip) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
