// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

// MemoryStore keeps state for the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	periods map[uuid.UUID]*model.PeriodState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{periods: make(map[uuid.UUID]*model.PeriodState)}
}

func (m *MemoryStore) GetPeriod(_ context.Context, id uuid.UUID) (*model.PeriodState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.periods[id].Clone(), nil
}

func (m *MemoryStore) UpdatePeriod(_ context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (*model.PeriodState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.periods[id]
	work := &model.PeriodState{PeriodID: id}
	if ok {
		work = cur.Clone()
	}
	write, err := apply(work, fn)
	if err != nil {
		return nil, err
	}
	if !write {
		return cur.Clone(), nil
	}
	m.periods[id] = work
	return work.Clone(), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Len reports the number of tracked periods.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.periods)
}

func (m *MemoryStore) SweepTerminal(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, st := range m.periods {
		if st.LastStatus.Terminal() && st.UpdatedAt.Before(before) {
			delete(m.periods, id)
			n++
		}
	}
	return n, nil
}
