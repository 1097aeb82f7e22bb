// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tracker

import (
	"iter"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

// Classify maps a wait snapshot to a status. Only a period waiting on itself
// for a known reason gets a specific status; everything else waits on
// another period.
func Classify(w model.WaitSnapshot) model.Status {
	if w.SelfWait() {
		switch w.Target.ReasonCode {
		case model.ReasonEmployerReport:
			return model.StatusAwaitingEmployer
		case model.ReasonApproval:
			return model.StatusAwaitingCaseworker
		}
	}
	return model.StatusAwaitingOtherPeriod
}

// Classifications lazily yields each snapshot with its status, in order.
func Classifications(periods []model.WaitSnapshot) iter.Seq2[model.WaitSnapshot, model.Status] {
	return func(yield func(model.WaitSnapshot, model.Status) bool) {
		for _, w := range periods {
			if !yield(w, Classify(w)) {
				return
			}
		}
	}
}
