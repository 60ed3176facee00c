package models

import "testing"

func TestNormalizeDecision(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Decision
	}{
		{"empty", "", DecisionPending},
		{"allow lower", "allow", DecisionAccepted},
		{"allowed", "ALLOWED", DecisionAccepted},
		{"accept", "Accept", DecisionAccepted},
		{"approved", "approved", DecisionAccepted},
		{"deny", "deny", DecisionRejected},
		{"denied upper", "DENIED", DecisionRejected},
		{"reject", "reject", DecisionRejected},
		{"rejected", "Rejected", DecisionRejected},
		{"whitespace", "  accepted ", DecisionAccepted},
		{"unknown", "maybe", DecisionPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDecision(tt.raw); got != tt.expected {
				t.Errorf("NormalizeDecision(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestDecision_IsDecided(t *testing.T) {
	if !DecisionAccepted.IsDecided() || !DecisionRejected.IsDecided() {
		t.Error("accepted and rejected should be decided")
	}
	if DecisionPending.IsDecided() {
		t.Error("pending should not be decided")
	}
}

func TestConsensusPayload_RejectionReasonText(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected *string
	}{
		{"absent", "", nil},
		{"null", "null", nil},
		{"string", `"duplicate entry"`, strPtr("duplicate entry")},
		{"object", `{"failed_fields":["email"]}`, strPtr(`{"failed_fields":["email"]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ConsensusPayload{PrimaryRejectionReason: []byte(tt.raw)}
			got := p.RejectionReasonText()
			switch {
			case got == nil && tt.expected == nil:
			case got == nil || tt.expected == nil:
				t.Fatalf("RejectionReasonText() = %v, want %v", got, tt.expected)
			case *got != *tt.expected:
				t.Errorf("RejectionReasonText() = %q, want %q", *got, *tt.expected)
			}
		})
	}
}

func TestSnapshot_ActiveMiners(t *testing.T) {
	var nilSnap *Snapshot
	if nilSnap.ActiveMiners() != nil {
		t.Error("nil snapshot should disable filtering")
	}
	if (&Snapshot{}).ActiveMiners() != nil {
		t.Error("empty snapshot should disable filtering")
	}

	snap := &Snapshot{HotkeyToUID: map[string]int{"hk1": 1, "hk2": 2}}
	active := snap.ActiveMiners()
	if len(active) != 2 {
		t.Fatalf("ActiveMiners() len = %d, want 2", len(active))
	}
	if _, ok := active["hk1"]; !ok {
		t.Error("ActiveMiners() missing hk1")
	}
	if uid, ok := snap.UID("hk2"); !ok || uid != 2 {
		t.Errorf("UID(hk2) = %d, %v, want 2, true", uid, ok)
	}
}

func strPtr(s string) *string { return &s }
