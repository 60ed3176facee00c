// Package sqlite provides a SQLite-backed transparency log for local runs
// and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"leaddash/internal/db"
	"leaddash/internal/models"
)

//go:embed schema.sql
var schema string

// Store reads and writes the transparency log in SQLite. Timestamps are
// stored as unix milliseconds.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// FetchEvents returns one page of events of the given type, newest first.
func (s *Store) FetchEvents(ctx context.Context, eventType string, since *time.Time, offset, limit int) ([]models.Event, error) {
	if !db.ValidEventType(eventType) {
		return nil, fmt.Errorf("%w: %s", db.ErrUnknownEventType, eventType)
	}

	var sinceMillis any
	if since != nil {
		sinceMillis = toMillis(*since)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, ts, event_type, actor_hotkey, email_hash, payload
		 FROM transparency_log
		 WHERE event_type = ?
		   AND email_hash IS NOT NULL
		   AND (? IS NULL OR ts >= ?)
		 ORDER BY ts DESC, id DESC
		 LIMIT ? OFFSET ?`,
		eventType, sinceMillis, sinceMillis, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s events: %w", eventType, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			e       models.Event
			ts      int64
			actor   sql.NullString
			hash    sql.NullString
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.EventType, &actor, &hash, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.TS = fromMillis(ts)
		if actor.Valid {
			e.ActorHotkey = &actor.String
		}
		if hash.Valid {
			e.EmailHash = &hash.String
		}
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertEvent appends an event and returns its id.
func (s *Store) InsertEvent(ctx context.Context, e models.Event) (int64, error) {
	if !db.ValidEventType(e.EventType) {
		return 0, fmt.Errorf("%w: %s", db.ErrUnknownEventType, e.EventType)
	}
	ts := e.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO transparency_log (ts, event_type, actor_hotkey, email_hash, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		toMillis(ts), e.EventType, e.ActorHotkey, e.EmailHash, payload,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// InsertEvents appends events in one transaction.
func (s *Store) InsertEvents(ctx context.Context, events []models.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transparency_log (ts, event_type, actor_hotkey, email_hash, payload)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if !db.ValidEventType(e.EventType) {
			return fmt.Errorf("%w: %s", db.ErrUnknownEventType, e.EventType)
		}
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		if _, err := stmt.ExecContext(ctx, toMillis(e.TS), e.EventType, e.ActorHotkey, e.EmailHash, payload); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// SeedDevEvents inserts the development event set when the log is empty.
func (s *Store) SeedDevEvents(ctx context.Context) error {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM transparency_log`).Scan(&count); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if count > 0 {
		return nil
	}
	return s.InsertEvents(ctx, db.DevEvents(time.Now()))
}
