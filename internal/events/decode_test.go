package events

import (
	"encoding/json"
	"testing"
	"time"

	"leaddash/internal/models"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestDecodeSubmissions(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Event{
		{TS: ts, ActorHotkey: strPtr("X"), EmailHash: strPtr("a"), Payload: json.RawMessage(`{"lead_id":"L1"}`)},
		{TS: ts, EmailHash: strPtr("b"), Payload: json.RawMessage(`{"miner_hotkey":"Y"}`)},
		{TS: ts, EmailHash: strPtr("c")},
		{TS: ts, ActorHotkey: strPtr("X")},
		{TS: ts, ActorHotkey: strPtr("Z"), EmailHash: strPtr("d"), Payload: json.RawMessage(`not json`)},
	}

	subs := DecodeSubmissions(rows)
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	if subs[0].LeadID == nil || *subs[0].LeadID != "L1" {
		t.Errorf("lead id not decoded: %+v", subs[0])
	}
	if subs[1].MinerHotkey != "Y" {
		t.Errorf("payload hotkey fallback failed: %+v", subs[1])
	}
	if subs[2].LeadID != nil {
		t.Errorf("malformed payload should be empty: %+v", subs[2])
	}
}

func TestDecodeConsensus(t *testing.T) {
	rows := []models.Event{
		{EmailHash: strPtr("a"), Payload: json.RawMessage(`{"final_decision":"deny","epoch_id":12,"final_rep_score":0.4,"primary_rejection_reason":{"failed_fields":["email"]}}`)},
		{EmailHash: strPtr("b"), Payload: json.RawMessage(`{"final_decision":"approve","primary_rejection_reason":"duplicate"}`)},
		{EmailHash: strPtr("c"), Payload: json.RawMessage(`{"final_decision":`)},
		{Payload: json.RawMessage(`{"final_decision":"approve"}`)},
	}

	cons := DecodeConsensus(rows)
	if len(cons) != 3 {
		t.Fatalf("expected 3 events, got %d", len(cons))
	}
	a := cons[0]
	if a.Decision != "deny" || a.EpochID == nil || *a.EpochID != 12 || a.RepScore == nil || *a.RepScore != 0.4 {
		t.Errorf("a = %+v", a)
	}
	if a.RejectionReason == nil || *a.RejectionReason != `{"failed_fields":["email"]}` {
		t.Errorf("object reason should be kept as JSON text, got %v", a.RejectionReason)
	}
	if cons[1].RejectionReason == nil || *cons[1].RejectionReason != "duplicate" {
		t.Errorf("string reason should be unquoted, got %v", cons[1].RejectionReason)
	}
	if cons[2].Decision != "" {
		t.Errorf("malformed payload should decode empty, got %+v", cons[2])
	}
}

func TestDecodeConsensusKeepsGoodAttributes(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		decision string
		epoch    *int64
		score    *float64
		reason   *string
	}{
		{
			name:     "numeric string epoch",
			payload:  `{"final_decision":"ACCEPTED","epoch_id":"12","final_rep_score":0.9}`,
			decision: "ACCEPTED",
			epoch:    int64Ptr(12),
			score:    floatPtr(0.9),
		},
		{
			name:     "numeric string score",
			payload:  `{"final_decision":"deny","epoch_id":7,"final_rep_score":" 0.25 "}`,
			decision: "deny",
			epoch:    int64Ptr(7),
			score:    floatPtr(0.25),
		},
		{
			name:     "bad validator count",
			payload:  `{"final_decision":"approve","validator_count":"many","primary_rejection_reason":"spam"}`,
			decision: "approve",
			reason:   strPtr("spam"),
		},
		{
			name:     "unparseable epoch",
			payload:  `{"final_decision":"approve","epoch_id":"next","final_rep_score":[1]}`,
			decision: "approve",
		},
		{
			name:    "decision of wrong type",
			payload: `{"final_decision":1,"epoch_id":3}`,
			epoch:   int64Ptr(3),
		},
		{
			name:    "not an object",
			payload: `["ACCEPTED"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cons := DecodeConsensus([]models.Event{{EmailHash: strPtr("h"), Payload: json.RawMessage(tt.payload)}})
			if len(cons) != 1 {
				t.Fatalf("expected 1 event, got %d", len(cons))
			}
			got := cons[0]
			if got.Decision != tt.decision {
				t.Errorf("Decision = %q, want %q", got.Decision, tt.decision)
			}
			if !equalPtr(got.EpochID, tt.epoch) {
				t.Errorf("EpochID = %v, want %v", got.EpochID, tt.epoch)
			}
			if !equalPtr(got.RepScore, tt.score) {
				t.Errorf("RepScore = %v, want %v", got.RepScore, tt.score)
			}
			if !equalPtr(got.RejectionReason, tt.reason) {
				t.Errorf("RejectionReason = %v, want %v", got.RejectionReason, tt.reason)
			}
		})
	}
}

func TestDecodeSubmissionsKeepsGoodAttributes(t *testing.T) {
	rows := []models.Event{
		{EmailHash: strPtr("a"), Payload: json.RawMessage(`{"lead_id":42,"miner_hotkey":"M"}`)},
		{EmailHash: strPtr("b"), Payload: json.RawMessage(`{"lead_id":"L2","miner_hotkey":{"ss58":"M"}}`), ActorHotkey: strPtr("A")},
	}

	subs := DecodeSubmissions(rows)
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].MinerHotkey != "M" || subs[0].LeadID != nil {
		t.Errorf("a = %+v", subs[0])
	}
	if subs[1].MinerHotkey != "A" || subs[1].LeadID == nil || *subs[1].LeadID != "L2" {
		t.Errorf("b = %+v", subs[1])
	}
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
