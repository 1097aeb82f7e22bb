// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/casestatus/store"
	"github.com/ManuGH/statusfeed/internal/registry"
)

type fakeRegistry struct {
	docs  map[uuid.UUID]uuid.UUID
	err   error
	calls int
}

func (f *fakeRegistry) Lookup(_ context.Context, ids []uuid.UUID) ([]registry.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []registry.Document
	for _, id := range ids {
		if ext, ok := f.docs[id]; ok {
			out = append(out, registry.Document{InternalID: id, ExternalID: ext})
		}
	}
	return out, nil
}

// recorder captures published events. failOn makes the n-th publish attempt
// (1-based, counted across the test) fail.
type recorder struct {
	events   []model.StatusEvent
	attempts int
	failOn   map[int]error
}

func (r *recorder) Publish(_ context.Context, ev model.StatusEvent) error {
	r.attempts++
	if err := r.failOn[r.attempts]; err != nil {
		return err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) statuses(period uuid.UUID) []model.Status {
	var out []model.Status
	for _, ev := range r.events {
		if ev.BenefitPeriodID == period {
			out = append(out, ev.Status)
		}
	}
	return out
}

func (r *recorder) external(period uuid.UUID) [][]uuid.UUID {
	var out [][]uuid.UUID
	for _, ev := range r.events {
		if ev.BenefitPeriodID == period {
			out = append(out, ev.ExternalApplicationIDs)
		}
	}
	return out
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	registry *fakeRegistry
	pub      *recorder
	cases    *store.Cases
	tracker  *Tracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := &fakeRegistry{docs: map[uuid.UUID]uuid.UUID{}}
	pub := &recorder{failOn: map[int]error{}}
	cases := store.NewCases(store.NewMemoryStore())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &harness{
		t:        t,
		ctx:      context.Background(),
		registry: reg,
		pub:      pub,
		cases:    cases,
		tracker:  New(cases, reg, pub, WithClock(func() time.Time { return fixed })),
	}
}

// application registers an internal application id with its external id.
func (h *harness) application() (internal, external uuid.UUID) {
	internal, external = uuid.New(), uuid.New()
	h.registry.docs[internal] = external
	return internal, external
}

func (h *harness) open(period uuid.UUID, apps ...uuid.UUID) error {
	return h.tracker.Handle(h.ctx, model.CaseOpened{
		Meta:           model.Meta{EventID: uuid.New()},
		PeriodID:       period,
		CaseID:         uuid.New(),
		ApplicationIDs: apps,
	})
}

func (h *harness) wait(period, target uuid.UUID, reason string) error {
	return h.tracker.Handle(h.ctx, model.PeriodsWaiting{
		Meta: model.Meta{EventID: uuid.New()},
		Periods: []model.WaitSnapshot{{
			ReportingPeriodID: period,
			EmployerID:        "999999999",
			Target:            model.WaitTarget{TargetBenefitPeriodID: target, TargetEmployerID: "999999999", ReasonCode: reason},
		}},
	})
}

func (h *harness) close(period uuid.UUID) error {
	return h.tracker.Handle(h.ctx, model.CaseClosed{Meta: model.Meta{EventID: uuid.New()}, PeriodID: period, CaseID: uuid.New()})
}

func (h *harness) discard(period uuid.UUID) error {
	return h.tracker.Handle(h.ctx, model.CaseDiscarded{Meta: model.Meta{EventID: uuid.New()}, PeriodID: period, CaseID: uuid.New()})
}

func statuses(s ...model.Status) []model.Status { return s }

const (
	opened     = model.StatusOpened
	employer   = model.StatusAwaitingEmployer
	caseworker = model.StatusAwaitingCaseworker
	other      = model.StatusAwaitingOtherPeriod
	manual     = model.StatusHandledManually
	completed  = model.StatusCompleted
)

func TestNewCaseThatCompletes(t *testing.T) {
	h := newHarness(t)
	app, ext := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.close(p))

	assert.Equal(t, statuses(opened, employer, caseworker, completed), h.pub.statuses(p))
	for _, ids := range h.pub.external(p) {
		assert.Equal(t, []uuid.UUID{ext}, ids)
	}
}

func TestCaseHandledOutsideAutomation(t *testing.T) {
	h := newHarness(t)
	app, _ := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))
	require.NoError(t, h.discard(p))

	assert.Equal(t, statuses(opened, manual), h.pub.statuses(p))
}

func TestReassessmentStartsNewGeneration(t *testing.T) {
	h := newHarness(t)
	app, ext := h.application()
	p, q := uuid.New(), uuid.New()
	qApp, qExt := h.application()

	require.NoError(t, h.open(p, app))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.close(p))

	require.NoError(t, h.open(q, qApp))
	require.NoError(t, h.open(p, app))
	require.NoError(t, h.wait(q, q, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, q, model.ReasonEmployerReport))

	assert.Equal(t, statuses(opened, employer, caseworker, completed, opened, other), h.pub.statuses(p))
	for _, ids := range h.pub.external(p) {
		assert.Equal(t, []uuid.UUID{ext}, ids, "waiting on q must not leak q's ids")
	}
	assert.Equal(t, statuses(opened, employer), h.pub.statuses(q))
	for _, ids := range h.pub.external(q) {
		assert.Equal(t, []uuid.UUID{qExt}, ids)
	}
}

func TestOverlappingPeriodsFromTwoEmployers(t *testing.T) {
	h := newHarness(t)
	app1, _ := h.application()
	app2, _ := h.application()
	p1, p2 := uuid.New(), uuid.New()

	require.NoError(t, h.open(p1, app1))
	require.NoError(t, h.open(p2, app2))
	require.NoError(t, h.wait(p1, p1, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p1, p2, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p2, p2, model.ReasonEmployerReport))

	assert.Equal(t, statuses(opened, employer, other), h.pub.statuses(p1))
	assert.Equal(t, statuses(opened, employer), h.pub.statuses(p2))
}

func TestUnrecognizedSelfWaitReason(t *testing.T) {
	h := newHarness(t)
	app, _ := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))
	require.NoError(t, h.wait(p, p, "SØKNAD"))

	assert.Equal(t, statuses(opened, other), h.pub.statuses(p))
}

func TestSelfWaitOnEmployerReportFollowsOpened(t *testing.T) {
	h := newHarness(t)
	app, _ := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))
	assert.Equal(t, statuses(opened), h.pub.statuses(p))

	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	assert.Equal(t, statuses(opened, employer), h.pub.statuses(p))
}

func TestRepeatedWaitIsNotRepublished(t *testing.T) {
	h := newHarness(t)
	app, _ := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))

	assert.Equal(t, statuses(opened, employer, caseworker, employer), h.pub.statuses(p))
}

func TestTerminalStatusesAlwaysPublished(t *testing.T) {
	h := newHarness(t)
	app, _ := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))
	require.NoError(t, h.close(p))
	require.NoError(t, h.close(p))
	require.NoError(t, h.discard(p))
	require.NoError(t, h.discard(p))

	assert.Equal(t, statuses(opened, completed, completed, manual, manual), h.pub.statuses(p))
}

func TestReopenAfterDiscardPublishesOpened(t *testing.T) {
	h := newHarness(t)
	first, firstExt := h.application()
	second, secondExt := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, first))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.discard(p))
	require.NoError(t, h.open(p, second))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))

	assert.Equal(t, statuses(opened, employer, manual, opened, employer), h.pub.statuses(p),
		"a new generation may repeat the previous generation's wait status")

	ext := h.pub.external(p)
	assert.Equal(t, []uuid.UUID{firstExt}, ext[2])
	assert.Equal(t, []uuid.UUID{secondExt}, ext[3])
	assert.Equal(t, []uuid.UUID{secondExt}, ext[4])
}

func TestUnknownPeriodPublishesEmptyIDs(t *testing.T) {
	h := newHarness(t)
	p := uuid.New()

	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.close(p))

	assert.Equal(t, statuses(caseworker, completed), h.pub.statuses(p),
		"repeated waits are suppressed without a stored case too")
	for _, ids := range h.pub.external(p) {
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	}

	st, err := h.cases.Lookup(h.ctx, p)
	require.NoError(t, err)
	assert.Nil(t, st, "only case opened creates state")
}

func TestUnknownPeriodWaitRepeatsAfterStatusChange(t *testing.T) {
	h := newHarness(t)
	p := uuid.New()

	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, p, model.ReasonApproval))
	require.NoError(t, h.wait(p, p, model.ReasonApproval))

	assert.Equal(t, statuses(caseworker, employer, caseworker), h.pub.statuses(p))
}

func TestOpenCaseForgetsUnknownPeriodStatus(t *testing.T) {
	h := newHarness(t)
	app, ext := h.application()
	p := uuid.New()

	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.open(p, app))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))

	assert.Equal(t, statuses(employer, opened, employer), h.pub.statuses(p))
	assert.Equal(t, [][]uuid.UUID{{}, {ext}, {ext}}, h.pub.external(p))
}

// failingStore fails the UpdatePeriod call with the given number.
type failingStore struct {
	*store.MemoryStore
	updates int
	failOn  int
}

func (f *failingStore) UpdatePeriod(ctx context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (*model.PeriodState, error) {
	f.updates++
	if f.updates == f.failOn {
		return nil, errors.New("store unavailable")
	}
	return f.MemoryStore.UpdatePeriod(ctx, id, fn)
}

func TestReopenStoresExternalIDsWithGeneration(t *testing.T) {
	h := newHarness(t)
	fs := &failingStore{MemoryStore: store.NewMemoryStore()}
	h.cases = store.NewCases(fs)
	h.tracker = New(h.cases, h.registry, h.pub)

	first, _ := h.application()
	second, secondExt := h.application()
	p := uuid.New()
	require.NoError(t, h.open(p, first))

	// The write after the generation is stored fails.
	fs.failOn = fs.updates + 2
	require.Error(t, h.open(p, second))

	st, err := h.cases.Lookup(h.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Generation)
	assert.Equal(t, []uuid.UUID{secondExt}, st.ExternalApplicationIDs)

	require.NoError(t, h.close(p))
	ext := h.pub.external(p)
	assert.Equal(t, []uuid.UUID{secondExt}, ext[len(ext)-1])
}

func TestLookupFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	app, ext := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, app))

	boom := errors.New("registry unavailable")
	h.registry.err = boom
	err := h.open(p, app)
	require.ErrorIs(t, err, boom)

	st, err := h.cases.Lookup(h.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Generation)
	assert.Equal(t, []uuid.UUID{ext}, st.ExternalApplicationIDs)
	assert.Equal(t, statuses(opened), h.pub.statuses(p))

	// Redelivery after recovery succeeds.
	h.registry.err = nil
	require.NoError(t, h.open(p, app))
	assert.Equal(t, statuses(opened, opened), h.pub.statuses(p))
}

func TestMissingRegistryDocumentIsSkipped(t *testing.T) {
	h := newHarness(t)
	known, ext := h.application()
	p := uuid.New()

	require.NoError(t, h.open(p, known, uuid.New()))
	assert.Equal(t, [][]uuid.UUID{{ext}}, h.pub.external(p))
}

func TestPublishFailureMidBatchKeepsEarlierPublishes(t *testing.T) {
	h := newHarness(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	boom := errors.New("broker down")
	h.pub.failOn[2] = boom

	ev := model.PeriodsWaiting{
		Meta: model.Meta{EventID: uuid.New()},
		Periods: []model.WaitSnapshot{
			{ReportingPeriodID: a, Target: model.WaitTarget{TargetBenefitPeriodID: a, ReasonCode: model.ReasonApproval}},
			{ReportingPeriodID: b, Target: model.WaitTarget{TargetBenefitPeriodID: b, ReasonCode: model.ReasonEmployerReport}},
			{ReportingPeriodID: c, Target: model.WaitTarget{TargetBenefitPeriodID: a, ReasonCode: model.ReasonEmployerReport}},
		},
	}
	err := h.tracker.Handle(h.ctx, ev)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, statuses(caseworker), h.pub.statuses(a))
	assert.Empty(t, h.pub.statuses(b))
	assert.Empty(t, h.pub.statuses(c))

	// Redelivery of the whole message re-runs every snapshot; a already
	// carries its status.
	require.NoError(t, h.tracker.Handle(h.ctx, ev))
	assert.Equal(t, statuses(caseworker), h.pub.statuses(a))
	assert.Equal(t, statuses(employer), h.pub.statuses(b))
	assert.Equal(t, statuses(other), h.pub.statuses(c))
}

func TestPublishFailureDoesNotSuppressRetry(t *testing.T) {
	h := newHarness(t)
	app, _ := h.application()
	p := uuid.New()
	require.NoError(t, h.open(p, app))

	h.pub.failOn[h.pub.attempts+1] = errors.New("broker down")
	require.Error(t, h.wait(p, p, model.ReasonEmployerReport))
	require.NoError(t, h.wait(p, p, model.ReasonEmployerReport))

	assert.Equal(t, statuses(opened, employer), h.pub.statuses(p))
}

func TestPublishedEventsCarryTimestamp(t *testing.T) {
	h := newHarness(t)
	app, ext := h.application()
	p := uuid.New()
	require.NoError(t, h.open(p, app))
	require.NoError(t, h.close(p))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	want := []model.StatusEvent{
		{BenefitPeriodID: p, Status: model.StatusOpened, ExternalApplicationIDs: []uuid.UUID{ext}, Timestamp: at},
		{BenefitPeriodID: p, Status: model.StatusCompleted, ExternalApplicationIDs: []uuid.UUID{ext}, Timestamp: at},
	}
	if diff := cmp.Diff(want, h.pub.events, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("published events mismatch (-want +got):\n%s", diff)
	}
}
