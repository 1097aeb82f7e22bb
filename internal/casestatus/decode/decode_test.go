// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package decode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

var (
	eventID  = uuid.MustParse("7d0b7e1c-32c8-4b7a-9a54-6f0b0c1d2e3f")
	periodID = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	otherID  = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	caseID   = uuid.MustParse("33333333-3333-4333-8333-333333333333")
	appID    = uuid.MustParse("44444444-4444-4444-8444-444444444444")
)

func TestDecodeCaseOpened(t *testing.T) {
	payload := fmt.Sprintf(`{
		"@event_name": "behandling_opprettet",
		"@id": "%s",
		"@opprettet": "2024-02-01T12:30:00.123456",
		"vedtaksperiodeId": "%s",
		"behandlingId": "%s",
		"søknadIder": ["%s"]
	}`, eventID, periodID, caseID, appID)

	ev, err := Decode([]byte(payload))
	require.NoError(t, err)

	opened, ok := ev.(model.CaseOpened)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, eventID, opened.ID())
	assert.Equal(t, periodID, opened.PeriodID)
	assert.Equal(t, caseID, opened.CaseID)
	assert.Equal(t, []uuid.UUID{appID}, opened.ApplicationIDs)
	assert.Equal(t, 2024, opened.CreatedAt.Year())
	assert.Equal(t, model.EventCaseOpened, opened.Name())
}

func TestDecodeCaseClosedAndDiscarded(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
	}{
		{name: model.EventCaseClosed, want: "model.CaseClosed"},
		{name: model.EventCaseDiscarded, want: "model.CaseDiscarded"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			payload := fmt.Sprintf(`{"@event_name":%q,"@id":%q,"vedtaksperiodeId":%q,"behandlingId":%q}`,
				tc.name, eventID, periodID, caseID)
			ev, err := Decode([]byte(payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, fmt.Sprintf("%T", ev))
			assert.Equal(t, tc.name, ev.Name())
		})
	}
}

func TestDecodePeriodsWaiting(t *testing.T) {
	payload := fmt.Sprintf(`{
		"@event_name": "vedtaksperioder_venter",
		"@id": "%s",
		"@opprettet": "2024-02-01T12:30:00Z",
		"vedtaksperioder": [
			{
				"vedtaksperiodeId": "%s",
				"hendelser": ["%s"],
				"organisasjonsnummer": "999999999",
				"behandlingId": "%s",
				"venterPå": {
					"vedtaksperiodeId": "%s",
					"organisasjonsnummer": "888888888",
					"venteårsak": {"hva": "INNTEKTSMELDING"}
				}
			},
			{
				"vedtaksperiodeId": "%s",
				"hendelser": [],
				"organisasjonsnummer": "888888888",
				"venterPå": {
					"vedtaksperiodeId": "%s",
					"organisasjonsnummer": "888888888",
					"venteårsak": {"hva": "SØKNAD"}
				}
			}
		]
	}`, eventID, periodID, appID, caseID, otherID, otherID, otherID)

	ev, err := Decode([]byte(payload))
	require.NoError(t, err)
	waiting, ok := ev.(model.PeriodsWaiting)
	require.True(t, ok, "got %T", ev)
	require.Len(t, waiting.Periods, 2)

	first := waiting.Periods[0]
	assert.Equal(t, periodID, first.ReportingPeriodID)
	assert.Equal(t, caseID, first.CaseID)
	assert.Equal(t, []uuid.UUID{appID}, first.ApplicationIDs)
	assert.Equal(t, "999999999", first.EmployerID)
	assert.Equal(t, model.WaitTarget{
		TargetBenefitPeriodID: otherID,
		TargetEmployerID:      "888888888",
		ReasonCode:            model.ReasonEmployerReport,
	}, first.Target)
	assert.False(t, first.SelfWait())

	second := waiting.Periods[1]
	assert.Equal(t, uuid.Nil, second.CaseID)
	assert.Empty(t, second.ApplicationIDs)
	assert.Equal(t, "SØKNAD", second.Target.ReasonCode)
	assert.True(t, second.SelfWait())
}

func TestDecodeEmptyPeriodsWaiting(t *testing.T) {
	payload := fmt.Sprintf(`{"@event_name":"vedtaksperioder_venter","@id":%q,"vedtaksperioder":[]}`, eventID)
	ev, err := Decode([]byte(payload))
	require.NoError(t, err)
	require.Empty(t, ev.(model.PeriodsWaiting).Periods)
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := Decode([]byte(`{"@event_name":"sendt_søknad_nav","@id":"not-even-checked"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownEvent))
	assert.False(t, IsValidation(err))
}

func TestDecodeValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{
			name:    "not json",
			payload: `not json`,
			field:   "payload",
		},
		{
			name:    "missing event name",
			payload: `{"@id":"` + eventID.String() + `"}`,
			field:   "@event_name",
		},
		{
			name:    "missing id",
			payload: fmt.Sprintf(`{"@event_name":"behandling_lukket","vedtaksperiodeId":%q,"behandlingId":%q}`, periodID, caseID),
			field:   "@id",
		},
		{
			name:    "bad period id",
			payload: fmt.Sprintf(`{"@event_name":"behandling_lukket","@id":%q,"vedtaksperiodeId":"nope","behandlingId":%q}`, eventID, caseID),
			field:   "vedtaksperiodeId",
		},
		{
			name:    "missing case id",
			payload: fmt.Sprintf(`{"@event_name":"behandling_forkastet","@id":%q,"vedtaksperiodeId":%q}`, eventID, periodID),
			field:   "behandlingId",
		},
		{
			name:    "missing application ids",
			payload: fmt.Sprintf(`{"@event_name":"behandling_opprettet","@id":%q,"vedtaksperiodeId":%q,"behandlingId":%q}`, eventID, periodID, caseID),
			field:   "søknadIder",
		},
		{
			name:    "empty application ids",
			payload: fmt.Sprintf(`{"@event_name":"behandling_opprettet","@id":%q,"vedtaksperiodeId":%q,"behandlingId":%q,"søknadIder":[]}`, eventID, periodID, caseID),
			field:   "søknadIder",
		},
		{
			name:    "bad application id",
			payload: fmt.Sprintf(`{"@event_name":"behandling_opprettet","@id":%q,"vedtaksperiodeId":%q,"behandlingId":%q,"søknadIder":["x"]}`, eventID, periodID, caseID),
			field:   "søknadIder[0]",
		},
		{
			name:    "bad timestamp",
			payload: fmt.Sprintf(`{"@event_name":"behandling_lukket","@id":%q,"@opprettet":"yesterday","vedtaksperiodeId":%q,"behandlingId":%q}`, eventID, periodID, caseID),
			field:   "@opprettet",
		},
		{
			name:    "missing periods",
			payload: fmt.Sprintf(`{"@event_name":"vedtaksperioder_venter","@id":%q}`, eventID),
			field:   "vedtaksperioder",
		},
		{
			name: "missing wait reason",
			payload: fmt.Sprintf(`{"@event_name":"vedtaksperioder_venter","@id":%q,"vedtaksperioder":[
				{"vedtaksperiodeId":%q,"hendelser":[],"organisasjonsnummer":"1",
				 "venterPå":{"vedtaksperiodeId":%q,"organisasjonsnummer":"1"}}]}`, eventID, periodID, periodID),
			field: "vedtaksperioder[0].venterPå.venteårsak",
		},
		{
			name: "missing wait target",
			payload: fmt.Sprintf(`{"@event_name":"vedtaksperioder_venter","@id":%q,"vedtaksperioder":[
				{"vedtaksperiodeId":%q,"hendelser":[],"organisasjonsnummer":"1"}]}`, eventID, periodID),
			field: "vedtaksperioder[0].venterPå",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.payload))
			require.Nil(t, ev)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.False(t, errors.Is(err, ErrUnknownEvent))
		})
	}
}

func TestName(t *testing.T) {
	name, err := Name([]byte(`{"@event_name":"behandling_lukket"}`))
	require.NoError(t, err)
	assert.Equal(t, model.EventCaseClosed, name)
}

func TestNameRejectsGarbage(t *testing.T) {
	_, err := Name([]byte(`[]`))
	require.True(t, IsValidation(err))
}
