// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leaddash/internal/db"
	"leaddash/internal/db/sqlite"
	"leaddash/internal/models"
)

// TestDB creates a Postgres test database connection and returns a cleanup
// function. The test is skipped unless TEST_DATABASE_URL is set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)
	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	pool.Exec(ctx, "DELETE FROM transparency_log")
}

// SQLiteStore opens an event store in a temporary file, closed when the test ends.
func SQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "events.sqlite"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close sqlite store: %v", err)
		}
	})
	return store
}

// SubmissionEvent builds a SUBMISSION row.
func SubmissionEvent(ts time.Time, hotkey, hash, leadID string) models.Event {
	payload, _ := json.Marshal(models.SubmissionPayload{LeadID: &leadID})
	return models.Event{
		TS:          ts,
		EventType:   models.EventSubmission,
		ActorHotkey: &hotkey,
		EmailHash:   &hash,
		Payload:     payload,
	}
}

// ConsensusEvent builds a CONSENSUS_RESULT row. An empty reason is omitted.
func ConsensusEvent(ts time.Time, hash, decision string, epoch int64, score float64, reason string) models.Event {
	p := models.ConsensusPayload{
		FinalDecision: decision,
		EpochID:       &epoch,
		FinalRepScore: &score,
	}
	if reason != "" {
		p.PrimaryRejectionReason, _ = json.Marshal(reason)
	}
	payload, _ := json.Marshal(p)
	return models.Event{
		TS:        ts,
		EventType: models.EventConsensusResult,
		EmailHash: &hash,
		Payload:   payload,
	}
}

// InsertEvents stores events or fails the test.
func InsertEvents(t *testing.T, store *sqlite.Store, events ...models.Event) {
	t.Helper()
	if err := store.InsertEvents(context.Background(), events); err != nil {
		t.Fatalf("failed to insert events: %v", err)
	}
}
