// Package aggregate computes the dashboard rollups over one merged snapshot.
// Every function is pure; callers fetch and merge once and hand the same
// data to each reducer.
package aggregate

import (
	"math"

	"leaddash/internal/merge"
	"leaddash/internal/models"
)

// Input is everything the reducers read for one dashboard bundle.
type Input struct {
	Merged    merge.Result
	Consensus []models.Consensus
	Snapshot  *models.Snapshot
	Meta      models.FetchMeta
}

// All runs every reducer over the same input.
func All(in Input) models.DashboardData {
	leads := in.Merged.Leads
	return models.DashboardData{
		Summary:              Summary(in.Merged),
		MinerStats:           Miners(leads, in.Snapshot),
		EpochStats:           Epochs(in.Merged.Winners, leads),
		LeadInventory:        Inventory(leads),
		RejectionReasons:     RejectionReasons(leads),
		RejectionCounts:      RejectionCounts(leads),
		IncentiveData:        Incentives(leads, in.Snapshot),
		LeadInventoryCount:   InventoryCount(in.Consensus),
		TotalSubmissionCount: in.Merged.TotalSubmissions,
		Meta:                 in.Meta,
	}
}

// Rate returns accepted as a percentage of decided leads with one decimal,
// or 0 when nothing was decided.
func Rate(accepted, rejected int) float64 {
	decided := accepted + rejected
	if decided == 0 {
		return 0
	}
	return math.Round(float64(accepted)/float64(decided)*1000) / 10
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// tally accumulates decision counts and the accepted score average.
type tally struct {
	total    int
	accepted int
	rejected int
	pending  int
	scoreSum float64
	scoreN   int
}

// add counts one lead. Anything that is not ACCEPTED or REJECTED is pending;
// only accepted leads contribute to the score average.
func (t *tally) add(d models.Decision, score *float64) {
	t.total++
	if !d.IsDecided() {
		t.pending++
		return
	}
	if d == models.DecisionRejected {
		t.rejected++
		return
	}
	t.accepted++
	if score != nil {
		t.scoreSum += *score
		t.scoreN++
	}
}

func (t *tally) rate() float64 {
	return Rate(t.accepted, t.rejected)
}

func (t *tally) avgScore(decimals int) float64 {
	if t.scoreN == 0 {
		return 0
	}
	return roundTo(t.scoreSum/float64(t.scoreN), decimals)
}
