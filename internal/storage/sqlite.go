package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"nyurban_tracker/internal/model"
	"nyurban_tracker/migrations"
)

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: a single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns every stored slot in saved order plus the metadata.
func (s *SQLite) Load(ctx context.Context) (model.State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, location, date, gym, level, time, fee, available, is_available
		 FROM slots ORDER BY position`,
	)
	if err != nil {
		return model.State{}, fmt.Errorf("query slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var st model.State
	for rows.Next() {
		var key string
		var slot model.Slot
		var isAvailable int
		if err := rows.Scan(&key, &slot.Location, &slot.Date, &slot.Gym, &slot.Level,
			&slot.Time, &slot.Fee, &slot.Available, &isAvailable); err != nil {
			return model.State{}, fmt.Errorf("scan slot: %w", err)
		}
		slot.IsAvailable = isAvailable == 1
		st.Slots.Put(key, slot)
	}
	if err := rows.Err(); err != nil {
		return model.State{}, fmt.Errorf("iterate slots: %w", err)
	}
	// Release the only connection before the metadata query.
	_ = rows.Close()

	ts, err := s.LastCheckTime(ctx)
	if err != nil {
		return model.State{}, err
	}
	st.Meta.LastCheckTime = ts
	return st, nil
}

// LastCheckTime returns the stored last check time, or 0.
func (s *SQLite) LastCheckTime(ctx context.Context) (float64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE name = ?`, lastCheckField,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query last check: %w", err)
	}
	ts, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse last check %q: %w", raw, err)
	}
	return ts, nil
}

// Save replaces all slots in one transaction and stamps the last check
// time. Other metadata rows are left alone.
func (s *SQLite) Save(ctx context.Context, slots model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM slots`); err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO slots (position, key, location, date, gym, level, time, fee, available, is_available)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, key := range slots.Keys() {
		slot, _ := slots.Get(key)
		if _, err := stmt.ExecContext(ctx, i, key, slot.Location, slot.Date, slot.Gym, slot.Level,
			slot.Time, slot.Fee, slot.Available, boolToInt(slot.IsAvailable)); err != nil {
			return fmt.Errorf("insert slot %q: %w", key, err)
		}
	}

	ts := strconv.FormatFloat(nowEpoch(s.now), 'f', -1, 64)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metadata (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		lastCheckField, ts,
	); err != nil {
		return fmt.Errorf("stamp last check: %w", err)
	}

	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
