// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package decode turns inbound bus payloads into model events. The set of
// accepted events is closed: anything not listed in model is rejected before a
// handler sees it.
package decode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

// ErrUnknownEvent is returned for payloads whose "@event_name" is not handled.
var ErrUnknownEvent = errors.New("unknown event")

// ValidationError reports a payload that is recognised but structurally invalid.
// Such payloads are discarded, never retried.
type ValidationError struct {
	EventName string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.EventName == "" {
		return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s event: %s: %s", e.EventName, e.Field, e.Reason)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type envelope struct {
	EventName *string `json:"@event_name"`
	ID        *string `json:"@id"`
	CreatedAt *string `json:"@opprettet"`
}

type caseEvent struct {
	PeriodID       *string   `json:"vedtaksperiodeId"`
	CaseID         *string   `json:"behandlingId"`
	ApplicationIDs *[]string `json:"søknadIder"`
}

type waitingEvent struct {
	Periods *[]waitingPeriod `json:"vedtaksperioder"`
}

type waitingPeriod struct {
	PeriodID       *string      `json:"vedtaksperiodeId"`
	CaseID         *string      `json:"behandlingId"`
	ApplicationIDs *[]string    `json:"hendelser"`
	EmployerID     *string      `json:"organisasjonsnummer"`
	WaitingOn      *waitingOnTo `json:"venterPå"`
}

type waitingOnTo struct {
	PeriodID   *string `json:"vedtaksperiodeId"`
	EmployerID *string `json:"organisasjonsnummer"`
	Reason     *struct {
		What *string `json:"hva"`
	} `json:"venteårsak"`
}

// Name extracts "@event_name" without validating the rest of the payload.
func Name(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", &ValidationError{Field: "payload", Reason: "not a JSON object"}
	}
	if env.EventName == nil || *env.EventName == "" {
		return "", &ValidationError{Field: "@event_name", Reason: "missing"}
	}
	return *env.EventName, nil
}

// Decode validates data and returns the matching model event.
func Decode(data []byte) (model.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: "not a JSON object"}
	}
	if env.EventName == nil || *env.EventName == "" {
		return nil, &ValidationError{Field: "@event_name", Reason: "missing"}
	}
	name := *env.EventName

	switch name {
	case model.EventCaseOpened, model.EventCaseClosed, model.EventCaseDiscarded, model.EventPeriodsWaiting:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	v := validator{event: name}
	meta := model.Meta{
		EventID:   v.requiredUUID("@id", env.ID),
		CreatedAt: v.optionalTime("@opprettet", env.CreatedAt),
	}
	if v.err != nil {
		return nil, v.err
	}

	switch name {
	case model.EventPeriodsWaiting:
		var raw waitingEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &ValidationError{EventName: name, Field: "vedtaksperioder", Reason: err.Error()}
		}
		return v.periodsWaiting(meta, raw)
	default:
		var raw caseEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &ValidationError{EventName: name, Field: "payload", Reason: err.Error()}
		}
		return v.caseEvent(meta, raw)
	}
}

func (v *validator) caseEvent(meta model.Meta, raw caseEvent) (model.Event, error) {
	periodID := v.requiredUUID("vedtaksperiodeId", raw.PeriodID)
	caseID := v.requiredUUID("behandlingId", raw.CaseID)

	var ev model.Event
	switch v.event {
	case model.EventCaseOpened:
		if raw.ApplicationIDs == nil {
			v.fail("søknadIder", "missing")
		} else if len(*raw.ApplicationIDs) == 0 {
			v.fail("søknadIder", "must contain at least one id")
		}
		var appIDs []uuid.UUID
		if raw.ApplicationIDs != nil {
			appIDs = v.uuidList("søknadIder", *raw.ApplicationIDs)
		}
		ev = model.CaseOpened{Meta: meta, PeriodID: periodID, CaseID: caseID, ApplicationIDs: appIDs}
	case model.EventCaseClosed:
		ev = model.CaseClosed{Meta: meta, PeriodID: periodID, CaseID: caseID}
	case model.EventCaseDiscarded:
		ev = model.CaseDiscarded{Meta: meta, PeriodID: periodID, CaseID: caseID}
	}
	if v.err != nil {
		return nil, v.err
	}
	return ev, nil
}

func (v *validator) periodsWaiting(meta model.Meta, raw waitingEvent) (model.Event, error) {
	if raw.Periods == nil {
		return nil, &ValidationError{EventName: v.event, Field: "vedtaksperioder", Reason: "missing"}
	}
	out := model.PeriodsWaiting{Meta: meta, Periods: make([]model.WaitSnapshot, 0, len(*raw.Periods))}
	for i, p := range *raw.Periods {
		prefix := fmt.Sprintf("vedtaksperioder[%d].", i)
		snap := model.WaitSnapshot{
			ReportingPeriodID: v.requiredUUID(prefix+"vedtaksperiodeId", p.PeriodID),
			CaseID:            v.optionalUUID(prefix+"behandlingId", p.CaseID),
			EmployerID:        v.requiredString(prefix+"organisasjonsnummer", p.EmployerID),
		}
		if p.ApplicationIDs == nil {
			v.fail(prefix+"hendelser", "missing")
		} else {
			snap.ApplicationIDs = v.uuidList(prefix+"hendelser", *p.ApplicationIDs)
		}
		if p.WaitingOn == nil {
			v.fail(prefix+"venterPå", "missing")
		} else {
			snap.Target.TargetBenefitPeriodID = v.requiredUUID(prefix+"venterPå.vedtaksperiodeId", p.WaitingOn.PeriodID)
			snap.Target.TargetEmployerID = v.requiredString(prefix+"venterPå.organisasjonsnummer", p.WaitingOn.EmployerID)
			if p.WaitingOn.Reason == nil {
				v.fail(prefix+"venterPå.venteårsak", "missing")
			} else {
				snap.Target.ReasonCode = v.requiredString(prefix+"venterPå.venteårsak.hva", p.WaitingOn.Reason.What)
			}
		}
		if v.err != nil {
			return nil, v.err
		}
		out.Periods = append(out.Periods, snap)
	}
	return out, nil
}

// validator keeps the first failure; later checks become no-ops.
type validator struct {
	event string
	err   *ValidationError
}

func (v *validator) fail(field, reason string) {
	if v.err == nil {
		v.err = &ValidationError{EventName: v.event, Field: field, Reason: reason}
	}
}

func (v *validator) requiredString(field string, s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		v.fail(field, "missing")
		return ""
	}
	return *s
}

func (v *validator) requiredUUID(field string, s *string) uuid.UUID {
	if s == nil || *s == "" {
		v.fail(field, "missing")
		return uuid.Nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		v.fail(field, "not a uuid")
		return uuid.Nil
	}
	return id
}

func (v *validator) optionalUUID(field string, s *string) uuid.UUID {
	if s == nil || *s == "" {
		return uuid.Nil
	}
	return v.requiredUUID(field, s)
}

func (v *validator) uuidList(field string, raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			v.fail(fmt.Sprintf("%s[%d]", field, i), "not a uuid")
			return nil
		}
		out = append(out, id)
	}
	return out
}

// Producers emit either RFC 3339 or a zone-less local timestamp.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func (v *validator) optionalTime(field string, s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return t
		}
	}
	v.fail(field, "not a timestamp")
	return time.Time{}
}
