package db

import (
	"encoding/json"
	"fmt"
	"time"

	"leaddash/internal/models"
)

// DevEvents returns a deterministic set of events for local development,
// timestamped relative to now.
func DevEvents(now time.Time) []models.Event {
	miners := []string{
		"5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty",
		"5FLSigC9HGRKVhB9FiEo4Y3koPsNmBmLJbpXg2mp1hXcS59Y",
		"5DAAnrj7VHTznn2AWBemMuyBwZWs6FNFjdyVXUeYum3PTXFy",
	}
	decisions := []string{"approve", "deny", "approve", "", "deny"}
	reasons := []string{
		`{"failed_fields":["email"]}`,
		`{"check_name":"check_domain_age"}`,
		"duplicate entry found",
	}

	var events []models.Event
	for i := 0; i < 30; i++ {
		hotkey := miners[i%len(miners)]
		hash := fmt.Sprintf("%064x", i+1)
		leadID := fmt.Sprintf("lead-%04d", i+1)
		ts := now.Add(-time.Duration(30-i) * time.Hour)

		sub, _ := json.Marshal(models.SubmissionPayload{LeadID: &leadID})
		events = append(events, models.Event{
			TS:          ts,
			EventType:   models.EventSubmission,
			ActorHotkey: &hotkey,
			EmailHash:   &hash,
			Payload:     sub,
		})

		decision := decisions[i%len(decisions)]
		if decision == "" {
			continue
		}
		epoch := int64(100 + i/10)
		p := models.ConsensusPayload{LeadID: &leadID, FinalDecision: decision, EpochID: &epoch}
		if decision == "approve" {
			score := 0.5 + float64(i%5)/10
			p.FinalRepScore = &score
		} else {
			reason, _ := json.Marshal(reasons[i%len(reasons)])
			if reasons[i%len(reasons)][0] == '{' {
				reason = json.RawMessage(reasons[i%len(reasons)])
			}
			p.PrimaryRejectionReason = reason
		}
		cons, _ := json.Marshal(p)
		events = append(events, models.Event{
			TS:        ts.Add(10 * time.Minute),
			EventType: models.EventConsensusResult,
			EmailHash: &hash,
			Payload:   cons,
		})
	}
	return events
}
