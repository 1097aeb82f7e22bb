// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

// SqliteStore keeps period state in a single table. Searchable columns are
// denormalized next to the JSON document.
type SqliteStore struct {
	DB *sql.DB
}

func OpenSqliteStore(ctx context.Context, dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	problems, err := sqlite.VerifyIntegrity(ctx, db, false)
	if err == nil && len(problems) > 0 {
		err = fmt.Errorf("integrity check: %s", strings.Join(problems, "; "))
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("period store: %w", err)
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("period store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) migrate(ctx context.Context) error {
	var current int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS periods (
		period_id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		last_status TEXT NOT NULL DEFAULT '',
		state_json TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_periods_case ON periods(case_id);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SqliteStore) GetPeriod(ctx context.Context, id uuid.UUID) (*model.PeriodState, error) {
	return readSqlite(ctx, s.DB, id)
}

func readSqlite(ctx context.Context, q queryer, id uuid.UUID) (*model.PeriodState, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT state_json FROM periods WHERE period_id = ?", id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st model.PeriodState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode period %s: %w", id, err)
	}
	return &st, nil
}

func (s *SqliteStore) UpdatePeriod(ctx context.Context, id uuid.UUID, fn func(*model.PeriodState) error) (*model.PeriodState, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := readSqlite(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	work := &model.PeriodState{PeriodID: id}
	if cur != nil {
		work = cur.Clone()
	}
	write, err := apply(work, fn)
	if err != nil {
		return nil, err
	}
	if !write {
		return cur, nil
	}

	buf, err := json.Marshal(work)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO periods (period_id, case_id, generation, last_status, state_json, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_id) DO UPDATE SET
			case_id = excluded.case_id,
			generation = excluded.generation,
			last_status = excluded.last_status,
			state_json = excluded.state_json,
			updated_at_ms = excluded.updated_at_ms`,
		id.String(), work.CaseID.String(), work.Generation, string(work.LastStatus), string(buf), time.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("upsert period %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return work, nil
}

func (s *SqliteStore) SweepTerminal(ctx context.Context, before time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx,
		"DELETE FROM periods WHERE last_status IN (?, ?) AND updated_at_ms < ?",
		string(model.StatusCompleted), string(model.StatusHandledManually), before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep periods: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SqliteStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *SqliteStore) Close() error { return s.DB.Close() }
