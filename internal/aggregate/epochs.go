package aggregate

import (
	"sort"

	"leaddash/internal/models"
)

// Epochs computes per-epoch stats. Epoch totals come from the winning
// consensus event of every email hash, including leads of miners that are no
// longer active. The per-miner breakdown only uses the merged leads.
func Epochs(winners map[string]models.Consensus, leads []models.MergedLead) []models.EpochStats {
	totals := make(map[int64]*tally)
	for _, c := range winners {
		if c.EpochID == nil {
			continue
		}
		t, ok := totals[*c.EpochID]
		if !ok {
			t = &tally{}
			totals[*c.EpochID] = t
		}
		t.add(models.NormalizeDecision(c.Decision), c.RepScore)
	}

	byEpoch := make(map[int64][]models.MergedLead)
	for _, lead := range leads {
		if lead.EpochID == nil {
			continue
		}
		byEpoch[*lead.EpochID] = append(byEpoch[*lead.EpochID], lead)
	}

	stats := make([]models.EpochStats, 0, len(totals))
	for id, t := range totals {
		stats = append(stats, models.EpochStats{
			EpochID:        id,
			TotalLeads:     t.accepted + t.rejected,
			Accepted:       t.accepted,
			Rejected:       t.rejected,
			AcceptanceRate: t.rate(),
			AvgRepScore:    t.avgScore(3),
			Miners:         epochMiners(byEpoch[id]),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].EpochID > stats[j].EpochID })
	return stats
}

func epochMiners(leads []models.MergedLead) []models.EpochMinerStats {
	byMiner := make(map[string]*tally)
	for _, lead := range leads {
		t, ok := byMiner[lead.MinerHotkey]
		if !ok {
			t = &tally{}
			byMiner[lead.MinerHotkey] = t
		}
		t.add(lead.Decision, lead.RepScore)
	}

	miners := make([]models.EpochMinerStats, 0, len(byMiner))
	for hotkey, t := range byMiner {
		miners = append(miners, models.EpochMinerStats{
			MinerHotkey:    hotkey,
			Total:          t.total,
			Accepted:       t.accepted,
			Rejected:       t.rejected,
			AcceptanceRate: t.rate(),
			AvgRepScore:    t.avgScore(3),
		})
	}
	sort.Slice(miners, func(i, j int) bool {
		if miners[i].AcceptanceRate != miners[j].AcceptanceRate {
			return miners[i].AcceptanceRate > miners[j].AcceptanceRate
		}
		return miners[i].MinerHotkey < miners[j].MinerHotkey
	})
	return miners
}
