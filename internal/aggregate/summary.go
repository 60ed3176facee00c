package aggregate

import (
	"leaddash/internal/merge"
	"leaddash/internal/models"
)

// Summary computes network-wide totals. TotalSubmissions counts filtered
// submissions before hash dedupe; the decision counts are over unique leads.
func Summary(res merge.Result) models.DashboardSummary {
	var t tally
	miners := make(map[string]struct{})
	epochs := make(map[int64]struct{})
	var latest int64

	for _, lead := range res.Leads {
		t.add(lead.Decision, lead.RepScore)
		miners[lead.MinerHotkey] = struct{}{}
		if lead.EpochID != nil {
			epochs[*lead.EpochID] = struct{}{}
			if len(epochs) == 1 || *lead.EpochID > latest {
				latest = *lead.EpochID
			}
		}
	}

	return models.DashboardSummary{
		TotalSubmissions: res.FilteredSubmissions,
		UniqueLeads:      len(res.Leads),
		TotalAccepted:    t.accepted,
		TotalRejected:    t.rejected,
		TotalPending:     t.pending,
		AcceptanceRate:   t.rate(),
		AvgRepScore:      t.avgScore(4),
		UniqueMiners:     len(miners),
		UniqueEpochs:     len(epochs),
		LatestEpoch:      latest,
	}
}
