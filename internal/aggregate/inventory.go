package aggregate

import (
	"sort"

	"leaddash/internal/models"
)

const dateLayout = "2006-01-02"

// Inventory groups ACCEPTED leads by UTC submission date into a daily and
// cumulative series, oldest first.
func Inventory(leads []models.MergedLead) []models.DailyLeadInventory {
	perDay := make(map[string]int)
	for _, lead := range leads {
		if lead.Decision != models.DecisionAccepted {
			continue
		}
		perDay[lead.Timestamp.UTC().Format(dateLayout)]++
	}

	dates := make([]string, 0, len(perDay))
	for d := range perDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make([]models.DailyLeadInventory, 0, len(dates))
	cumulative := 0
	for _, d := range dates {
		cumulative += perDay[d]
		series = append(series, models.DailyLeadInventory{
			Date:            d,
			NewLeads:        perDay[d],
			CumulativeLeads: cumulative,
		})
	}
	return series
}

// InventoryCount counts unique lead ids per decision across every consensus
// event. Events without a lead id are ignored. A lead id that received
// different decisions is counted under each of them.
func InventoryCount(cons []models.Consensus) models.LeadInventoryCount {
	byDecision := map[models.Decision]map[string]struct{}{
		models.DecisionAccepted: {},
		models.DecisionRejected: {},
		models.DecisionPending:  {},
	}
	for _, c := range cons {
		if c.LeadID == nil || *c.LeadID == "" {
			continue
		}
		byDecision[models.NormalizeDecision(c.Decision)][*c.LeadID] = struct{}{}
	}
	return models.LeadInventoryCount{
		Accepted: len(byDecision[models.DecisionAccepted]),
		Rejected: len(byDecision[models.DecisionRejected]),
		Pending:  len(byDecision[models.DecisionPending]),
	}
}

// Incentives computes each miner's share of ACCEPTED leads, highest first.
// Chain incentive is attached when the snapshot has one for the miner.
func Incentives(leads []models.MergedLead, snapshot *models.Snapshot) []models.IncentiveShare {
	perMiner := make(map[string]int)
	total := 0
	for _, lead := range leads {
		if lead.Decision != models.DecisionAccepted {
			continue
		}
		perMiner[lead.MinerHotkey]++
		total++
	}

	shares := make([]models.IncentiveShare, 0, len(perMiner))
	for hotkey, count := range perMiner {
		share := models.IncentiveShare{
			MinerHotkey:   hotkey,
			AcceptedLeads: count,
			LeadSharePct:  roundTo(float64(count)/float64(total)*100, 2),
		}
		if snapshot != nil {
			if v, ok := snapshot.Incentives[hotkey]; ok {
				pct := v * 100
				share.ChainIncentive = &pct
			}
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].LeadSharePct != shares[j].LeadSharePct {
			return shares[i].LeadSharePct > shares[j].LeadSharePct
		}
		return shares[i].MinerHotkey < shares[j].MinerHotkey
	})
	return shares
}
