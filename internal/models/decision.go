package models

import "strings"

// Decision is the normalised consensus outcome of a lead.
type Decision string

// Decision values
const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
	DecisionPending  Decision = "PENDING"
)

// NormalizeDecision maps the free-form decision strings written by validators
// onto ACCEPTED, REJECTED or PENDING. Unknown values are PENDING.
func NormalizeDecision(raw string) Decision {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "deny", "denied", "reject", "rejected":
		return DecisionRejected
	case "allow", "allowed", "accept", "accepted", "approve", "approved":
		return DecisionAccepted
	default:
		return DecisionPending
	}
}

// IsDecided returns true for ACCEPTED and REJECTED.
func (d Decision) IsDecided() bool {
	return d == DecisionAccepted || d == DecisionRejected
}
