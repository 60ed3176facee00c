package aggregate

import (
	"sort"

	"leaddash/internal/models"
)

const recentEpochWindow = 20

// Miners computes per-miner stats, sorted by acceptance rate (highest first)
// then hotkey. The last-20 window is the 20 highest distinct epoch ids in the
// data and the current epoch is the highest one.
func Miners(leads []models.MergedLead, snapshot *models.Snapshot) []models.MinerStats {
	epochIDs := distinctEpochs(leads)
	recent := make(map[int64]struct{}, recentEpochWindow)
	for i, id := range epochIDs {
		if i == recentEpochWindow {
			break
		}
		recent[id] = struct{}{}
	}
	var current *int64
	if len(epochIDs) > 0 {
		current = &epochIDs[0]
	}

	byMiner := make(map[string][]models.MergedLead)
	var order []string
	for _, lead := range leads {
		if _, ok := byMiner[lead.MinerHotkey]; !ok {
			order = append(order, lead.MinerHotkey)
		}
		byMiner[lead.MinerHotkey] = append(byMiner[lead.MinerHotkey], lead)
	}

	stats := make([]models.MinerStats, 0, len(order))
	for _, hotkey := range order {
		stats = append(stats, minerStats(hotkey, byMiner[hotkey], recent, current, snapshot))
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].AcceptanceRate != stats[j].AcceptanceRate {
			return stats[i].AcceptanceRate > stats[j].AcceptanceRate
		}
		return stats[i].MinerHotkey < stats[j].MinerHotkey
	})
	return stats
}

func minerStats(hotkey string, leads []models.MergedLead, recent map[int64]struct{}, current *int64, snapshot *models.Snapshot) models.MinerStats {
	var t tally
	s := models.MinerStats{MinerHotkey: hotkey}

	perEpoch := make(map[int64]*models.MinerEpochPerformance)
	for _, lead := range leads {
		t.add(lead.Decision, lead.RepScore)
		if lead.EpochID == nil {
			continue
		}
		id := *lead.EpochID

		p, ok := perEpoch[id]
		if !ok {
			p = &models.MinerEpochPerformance{EpochID: id}
			perEpoch[id] = p
		}
		_, inRecent := recent[id]
		isCurrent := current != nil && id == *current
		switch lead.Decision {
		case models.DecisionAccepted:
			p.Accepted++
			if inRecent {
				s.Last20Accepted++
			}
			if isCurrent {
				s.CurrentAccepted++
			}
		case models.DecisionRejected:
			p.Rejected++
			if inRecent {
				s.Last20Rejected++
			}
			if isCurrent {
				s.CurrentRejected++
			}
		}
	}

	s.TotalSubmissions = t.total
	s.Accepted = t.accepted
	s.Rejected = t.rejected
	s.Pending = t.pending
	s.AcceptanceRate = t.rate()
	s.AvgRepScore = t.avgScore(3)

	s.EpochPerformance = make([]models.MinerEpochPerformance, 0, len(perEpoch))
	for _, p := range perEpoch {
		p.AcceptanceRate = Rate(p.Accepted, p.Rejected)
		s.EpochPerformance = append(s.EpochPerformance, *p)
	}
	sort.Slice(s.EpochPerformance, func(i, j int) bool {
		return s.EpochPerformance[i].EpochID > s.EpochPerformance[j].EpochID
	})

	s.RejectionReasons = RejectionReasons(leads)

	if uid, ok := snapshot.UID(hotkey); ok {
		s.UID = &uid
	}
	return s
}

// distinctEpochs returns the epoch ids present in leads, highest first.
func distinctEpochs(leads []models.MergedLead) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, lead := range leads {
		if lead.EpochID == nil {
			continue
		}
		if _, ok := seen[*lead.EpochID]; ok {
			continue
		}
		seen[*lead.EpochID] = struct{}{}
		ids = append(ids, *lead.EpochID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}
