// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
)

// BadgerStore persists one JSON record per period under "period:<id>".
// A non-zero retention expires terminal records that were not touched for
// that long.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

func OpenBadgerStore(path string, retention time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, retention: retention}, nil
}

func badgerKey(id uuid.UUID) []byte { return []byte("period:" + id.String()) }

func (s *BadgerStore) GetPeriod(_ context.Context, id uuid.UUID) (*model.PeriodState, error) {
	var out *model.PeriodState
	err := s.db.View(func(txn *badger.Txn) error {
		st, err := readBadger(txn, id)
		out = st
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) UpdatePeriod(_ context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (*model.PeriodState, error) {
	var out *model.PeriodState
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := readBadger(txn, id)
		if err != nil {
			return err
		}
		work := &model.PeriodState{PeriodID: id}
		if cur != nil {
			work = cur.Clone()
		}
		write, err := apply(work, fn)
		if err != nil {
			return err
		}
		if !write {
			out = cur
			return nil
		}
		buf, err := json.Marshal(work)
		if err != nil {
			return err
		}
		entry := badger.NewEntry(badgerKey(id), buf)
		// Only finished periods may expire; an open case keeps its ids.
		if s.retention > 0 && work.LastStatus.Terminal() {
			entry = entry.WithTTL(s.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		out = work
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readBadger(txn *badger.Txn, id uuid.UUID) (*model.PeriodState, error) {
	item, err := txn.Get(badgerKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st model.PeriodState
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	}); err != nil {
		return nil, fmt.Errorf("decode period %s: %w", id, err)
	}
	return &st, nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }
