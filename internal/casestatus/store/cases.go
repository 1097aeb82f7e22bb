// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

// Cases implements the case-level operations on top of a StateStore.
//
// A period record is created by OpenCase only. The other writers leave
// unknown periods alone, so a stray wait or close event never invents state.
type Cases struct {
	store StateStore
	now   func() time.Time
}

func NewCases(s StateStore) *Cases {
	return &Cases{store: s, now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (c *Cases) WithClock(now func() time.Time) *Cases {
	c.now = now
	return c
}

// OpenCase starts a new case generation for periodID whose external id set
// is externalIDs. The previous generation's ids and last status are dropped
// in the same write.
func (c *Cases) OpenCase(ctx context.Context, periodID, caseID uuid.UUID, applicationIDs, externalIDs []uuid.UUID) (*model.PeriodState, error) {
	now := c.now().UTC()
	st, err := c.store.UpdatePeriod(ctx, periodID, func(st *model.PeriodState) error {
		st.CaseID = caseID
		st.ApplicationIDs = model.SortedIDs(applicationIDs)
		st.ExternalApplicationIDs = model.SortedIDs(externalIDs)
		st.Generation++
		st.LastStatus = ""
		st.OpenedAt = now
		st.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open case %s for period %s: %w", caseID, periodID, err)
	}
	return st, nil
}

// RecordResolvedExternalIDs adds ids to the external id set of the current
// generation.
func (c *Cases) RecordResolvedExternalIDs(ctx context.Context, periodID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := c.now().UTC()
	_, err := c.store.UpdatePeriod(ctx, periodID, func(st *model.PeriodState) error {
		if st.Generation == 0 {
			return ErrSkip
		}
		st.ExternalApplicationIDs = model.SortedIDs(append(st.ExternalApplicationIDs, ids...))
		st.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("record external ids for period %s: %w", periodID, err)
	}
	return nil
}

// Snapshot returns the external ids of the current generation, empty when the
// period is unknown.
func (c *Cases) Snapshot(ctx context.Context, periodID uuid.UUID) ([]uuid.UUID, error) {
	st, err := c.Lookup(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return []uuid.UUID{}, nil
	}
	return model.SortedIDs(st.ExternalApplicationIDs), nil
}

// Lookup returns the stored state or nil when the period is unknown.
func (c *Cases) Lookup(ctx context.Context, periodID uuid.UUID) (*model.PeriodState, error) {
	st, err := c.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("load period %s: %w", periodID, err)
	}
	return st, nil
}

// RecordPublished remembers status as the last one published for the
// current generation.
func (c *Cases) RecordPublished(ctx context.Context, periodID uuid.UUID, status model.Status) error {
	now := c.now().UTC()
	_, err := c.store.UpdatePeriod(ctx, periodID, func(st *model.PeriodState) error {
		if st.Generation == 0 {
			return ErrSkip
		}
		st.LastStatus = status
		st.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("record published %s for period %s: %w", status, periodID, err)
	}
	return nil
}

// Ping checks the backing store.
func (c *Cases) Ping(ctx context.Context) error { return c.store.Ping(ctx) }
