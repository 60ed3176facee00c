package models

import "time"

// MergedLead is one submitted lead joined with its consensus outcome.
// Exactly one exists per unique email hash among active-miner submissions.
type MergedLead struct {
	Timestamp       time.Time `json:"timestamp"`
	MinerHotkey     string    `json:"miner_hotkey"`
	EmailHash       string    `json:"email_hash"`
	LeadID          *string   `json:"lead_id"`
	EpochID         *int64    `json:"epoch_id"`
	Decision        Decision  `json:"decision"`
	RepScore        *float64  `json:"rep_score"`
	RejectionReason string    `json:"rejection_reason"`

	// Matched is true when a consensus event referenced the email hash.
	Matched bool `json:"-"`
}

// LatestLead is a recently decided lead for the "latest leads" table.
type LatestLead struct {
	EmailHash       string    `json:"email_hash"`
	MinerHotkey     string    `json:"miner_hotkey"`
	UID             *int      `json:"uid"`
	LeadID          *string   `json:"lead_id"`
	Timestamp       time.Time `json:"timestamp"`
	EpochID         *int64    `json:"epoch_id"`
	Decision        Decision  `json:"decision"`
	RepScore        *float64  `json:"rep_score"`
	RejectionReason *string   `json:"rejection_reason"`
}

// JourneyEntry is a lead row for the submissions tab.
type JourneyEntry struct {
	EmailHash       string    `json:"email_hash"`
	EmailHashShort  string    `json:"email_hash_short"`
	MinerHotkey     string    `json:"miner_hotkey"`
	Timestamp       time.Time `json:"timestamp"`
	EpochID         *int64    `json:"epoch_id"`
	Decision        Decision  `json:"decision"`
	RepScore        *float64  `json:"rep_score"`
	RejectionReason string    `json:"rejection_reason"`
	LeadID          *string   `json:"lead_id"`
}
