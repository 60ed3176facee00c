package models

import (
	"encoding/json"
	"time"
)

// Event types stored in the transparency log.
const (
	EventSubmission      = "SUBMISSION"
	EventConsensusResult = "CONSENSUS_RESULT"
)

// Event is a raw transparency log row.
type Event struct {
	ID          int64           `json:"id"`
	TS          time.Time       `json:"ts"`
	EventType   string          `json:"event_type"`
	ActorHotkey *string         `json:"actor_hotkey"`
	EmailHash   *string         `json:"email_hash"`
	Payload     json.RawMessage `json:"payload"`
}

// Submission is a decoded SUBMISSION event. One is emitted per submitted lead.
type Submission struct {
	TS          time.Time
	MinerHotkey string
	EmailHash   string
	LeadID      *string
}

// Consensus is a decoded CONSENSUS_RESULT event.
type Consensus struct {
	TS              time.Time
	EmailHash       string
	LeadID          *string
	Decision        string // raw, not normalised
	EpochID         *int64
	RepScore        *float64
	RejectionReason *string
}

// SubmissionPayload is the JSON payload carried by SUBMISSION events.
type SubmissionPayload struct {
	LeadID      *string `json:"lead_id,omitempty"`
	MinerHotkey *string `json:"miner_hotkey,omitempty"`
}

// ConsensusPayload is the JSON payload carried by CONSENSUS_RESULT events.
// PrimaryRejectionReason is either a plain string or an embedded JSON object.
type ConsensusPayload struct {
	LeadID                 *string         `json:"lead_id,omitempty"`
	FinalDecision          string          `json:"final_decision,omitempty"`
	EpochID                *int64          `json:"epoch_id,omitempty"`
	FinalRepScore          *float64        `json:"final_rep_score,omitempty"`
	PrimaryRejectionReason json.RawMessage `json:"primary_rejection_reason,omitempty"`
	ValidatorCount         *int            `json:"validator_count,omitempty"`
}

// RejectionReasonText returns the rejection reason as text. JSON strings are
// unquoted; objects are returned as their JSON encoding.
func (p ConsensusPayload) RejectionReasonText() *string {
	raw := p.PrimaryRejectionReason
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = string(raw)
	return &s
}
