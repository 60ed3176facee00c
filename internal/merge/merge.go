// Package merge joins submission events to consensus events by email hash.
package merge

import (
	"leaddash/internal/models"
	"leaddash/internal/rejection"
)

// Result is the merged view of one fetch cycle. All aggregators read from the
// same Result.
type Result struct {
	// Leads holds one entry per unique email hash among filtered submissions,
	// in first-occurrence order.
	Leads []models.MergedLead

	// FilteredSubmissions is the number of submissions left after dropping
	// incomplete rows and inactive miners, before hash dedupe.
	FilteredSubmissions int

	// TotalSubmissions is the number of submission events received.
	TotalSubmissions int

	// Winners is the authoritative consensus event per email hash.
	Winners map[string]models.Consensus
}

// Merge filters submissions to the active miners (all miners when active is
// empty), dedupes them by email hash and joins each to its winning consensus
// event. A lead without a consensus event is PENDING.
func Merge(subs []models.Submission, cons []models.Consensus, active map[string]struct{}) Result {
	winners := Winners(cons)

	res := Result{
		TotalSubmissions: len(subs),
		Winners:          winners,
	}

	seen := make(map[string]struct{}, len(subs))
	leads := make([]models.MergedLead, 0, len(subs))
	for _, sub := range subs {
		if sub.EmailHash == "" || sub.MinerHotkey == "" {
			continue
		}
		if len(active) > 0 {
			if _, ok := active[sub.MinerHotkey]; !ok {
				continue
			}
		}
		res.FilteredSubmissions++

		if _, dup := seen[sub.EmailHash]; dup {
			continue
		}
		seen[sub.EmailHash] = struct{}{}

		leads = append(leads, join(sub, winners))
	}
	res.Leads = leads
	return res
}

func join(sub models.Submission, winners map[string]models.Consensus) models.MergedLead {
	lead := models.MergedLead{
		Timestamp:       sub.TS,
		MinerHotkey:     sub.MinerHotkey,
		EmailHash:       sub.EmailHash,
		LeadID:          sub.LeadID,
		Decision:        models.DecisionPending,
		RejectionReason: rejection.NotAvailable,
	}

	c, ok := winners[sub.EmailHash]
	if !ok {
		return lead
	}
	lead.Matched = true
	lead.Decision = models.NormalizeDecision(c.Decision)
	lead.EpochID = c.EpochID
	lead.RepScore = c.RepScore
	if lead.LeadID == nil {
		lead.LeadID = c.LeadID
	}
	if lead.Decision == models.DecisionRejected {
		lead.RejectionReason = rejection.NormalizePtr(c.RejectionReason)
	}
	return lead
}

// Winners picks one consensus event per email hash. The event with the
// highest timestamp wins; on equal timestamps the first one in scan order
// is kept.
func Winners(cons []models.Consensus) map[string]models.Consensus {
	winners := make(map[string]models.Consensus, len(cons))
	for _, c := range cons {
		if c.EmailHash == "" {
			continue
		}
		cur, ok := winners[c.EmailHash]
		if !ok || c.TS.After(cur.TS) {
			winners[c.EmailHash] = c
		}
	}
	return winners
}
