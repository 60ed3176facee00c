package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leaddash/internal/models"
)

// ValidEventType reports whether the transparency log holds events of this type.
func ValidEventType(eventType string) bool {
	return eventType == models.EventSubmission || eventType == models.EventConsensusResult
}

// FetchEvents returns one page of events of the given type, newest first.
// Rows without an email hash are excluded. since limits the page to events
// at or after that time.
func (d *DB) FetchEvents(ctx context.Context, eventType string, since *time.Time, offset, limit int) ([]models.Event, error) {
	if !ValidEventType(eventType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	rows, err := d.Pool.Query(ctx, `
		SELECT id, ts, event_type, actor_hotkey, email_hash, payload
		FROM transparency_log
		WHERE event_type = $1
		  AND email_hash IS NOT NULL
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		ORDER BY ts DESC, id DESC
		LIMIT $3 OFFSET $4
	`, eventType, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s events: %w", eventType, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.TS, &e.EventType, &e.ActorHotkey, &e.EmailHash, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(payload) > 0 {
			e.Payload = json.RawMessage(payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertEvent appends an event to the log and returns its id.
func (d *DB) InsertEvent(ctx context.Context, e models.Event) (int64, error) {
	if !ValidEventType(e.EventType) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEventType, e.EventType)
	}
	ts := e.TS
	if ts.IsZero() {
		ts = time.Now()
	}

	var payload any
	if len(e.Payload) > 0 {
		payload = []byte(e.Payload)
	}

	var id int64
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO transparency_log (ts, event_type, actor_hotkey, email_hash, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, ts, e.EventType, e.ActorHotkey, e.EmailHash, payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

// SeedDevEvents inserts a small set of submissions and consensus results for
// development. Skips seeding when the log already has rows.
func (d *DB) SeedDevEvents(ctx context.Context) error {
	var count int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM transparency_log`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, e := range DevEvents(time.Now()) {
		if _, err := d.InsertEvent(ctx, e); err != nil {
			return fmt.Errorf("failed to seed event: %w", err)
		}
	}
	return nil
}
