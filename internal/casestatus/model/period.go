// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// PeriodState is the stored state of one benefit period.
type PeriodState struct {
	PeriodID               uuid.UUID   `json:"periodId"`
	CaseID                 uuid.UUID   `json:"caseId"`
	ApplicationIDs         []uuid.UUID `json:"applicationIds"`
	ExternalApplicationIDs []uuid.UUID `json:"externalApplicationIds"`
	Generation             int         `json:"generation"`
	LastStatus             Status      `json:"lastStatus,omitempty"`
	OpenedAt               time.Time   `json:"openedAt"`
	UpdatedAt              time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy so callers cannot mutate stored slices.
func (p *PeriodState) Clone() *PeriodState {
	if p == nil {
		return nil
	}
	cp := *p
	cp.ApplicationIDs = slices.Clone(p.ApplicationIDs)
	cp.ExternalApplicationIDs = slices.Clone(p.ExternalApplicationIDs)
	return &cp
}
