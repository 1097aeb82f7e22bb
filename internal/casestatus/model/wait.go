// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "github.com/google/uuid"

// Known wait reason codes. The set is open; anything else is carried through
// verbatim and classified as waiting on another period.
const (
	ReasonEmployerReport = "INNTEKTSMELDING"
	ReasonApproval       = "GODKJENNING"
)

// WaitTarget describes what a period is waiting on.
type WaitTarget struct {
	TargetBenefitPeriodID uuid.UUID
	TargetEmployerID      string
	ReasonCode            string
}

// WaitSnapshot is one entry of a "periods waiting" event.
type WaitSnapshot struct {
	ReportingPeriodID uuid.UUID
	CaseID            uuid.UUID // optional, uuid.Nil when absent
	ApplicationIDs    []uuid.UUID
	EmployerID        string
	Target            WaitTarget
}

// SelfWait reports whether the period is waiting on itself.
func (w WaitSnapshot) SelfWait() bool {
	return w.Target.TargetBenefitPeriodID == w.ReportingPeriodID
}
