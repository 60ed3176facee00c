package models

import "time"

// DashboardSummary holds network-wide totals.
type DashboardSummary struct {
	TotalSubmissions int     `json:"total_submissions"`
	UniqueLeads      int     `json:"unique_leads"`
	TotalAccepted    int     `json:"total_accepted"`
	TotalRejected    int     `json:"total_rejected"`
	TotalPending     int     `json:"total_pending"`
	AcceptanceRate   float64 `json:"acceptance_rate"`
	AvgRepScore      float64 `json:"avg_rep_score"`
	UniqueMiners     int     `json:"unique_miners"`
	UniqueEpochs     int     `json:"unique_epochs"`
	LatestEpoch      int64   `json:"latest_epoch"`
}

// MinerEpochPerformance is one miner's result in a single epoch.
type MinerEpochPerformance struct {
	EpochID        int64   `json:"epoch_id"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// ReasonCount is one bar of a rejection reason histogram.
type ReasonCount struct {
	Reason     string  `json:"reason"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MinerStats holds per-miner performance.
type MinerStats struct {
	MinerHotkey      string                  `json:"miner_hotkey"`
	UID              *int                    `json:"uid"`
	TotalSubmissions int                     `json:"total_submissions"`
	Accepted         int                     `json:"accepted"`
	Rejected         int                     `json:"rejected"`
	Pending          int                     `json:"pending"`
	AcceptanceRate   float64                 `json:"acceptance_rate"`
	AvgRepScore      float64                 `json:"avg_rep_score"`
	Last20Accepted   int                     `json:"last20_accepted"`
	Last20Rejected   int                     `json:"last20_rejected"`
	CurrentAccepted  int                     `json:"current_accepted"`
	CurrentRejected  int                     `json:"current_rejected"`
	EpochPerformance []MinerEpochPerformance `json:"epoch_performance"`
	RejectionReasons []ReasonCount           `json:"rejection_reasons"`
}

// EpochMinerStats is a miner's breakdown inside one epoch.
type EpochMinerStats struct {
	MinerHotkey    string  `json:"miner_hotkey"`
	Total          int     `json:"total"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	AvgRepScore    float64 `json:"avg_rep_score"`
}

// EpochStats holds totals for one epoch.
type EpochStats struct {
	EpochID        int64             `json:"epoch_id"`
	TotalLeads     int               `json:"total_leads"`
	Accepted       int               `json:"accepted"`
	Rejected       int               `json:"rejected"`
	AcceptanceRate float64           `json:"acceptance_rate"`
	AvgRepScore    float64           `json:"avg_rep_score"`
	Miners         []EpochMinerStats `json:"miners"`
}

// DailyLeadInventory is one point of the inventory growth series.
type DailyLeadInventory struct {
	Date            string `json:"date"`
	NewLeads        int    `json:"new_leads"`
	CumulativeLeads int    `json:"cumulative_leads"`
}

// LeadInventoryCount counts unique lead ids by decision across all consensus results.
type LeadInventoryCount struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// IncentiveShare is a miner's share of accepted leads.
type IncentiveShare struct {
	MinerHotkey    string   `json:"miner_hotkey"`
	AcceptedLeads  int      `json:"accepted_leads"`
	LeadSharePct   float64  `json:"lead_share_pct"`
	ChainIncentive *float64 `json:"chain_incentive,omitempty"`
}

// FetchMeta describes the completeness of the data a bundle was built from.
type FetchMeta struct {
	SubmissionRows    int  `json:"submission_rows"`
	ConsensusRows     int  `json:"consensus_rows"`
	SkippedBatches    int  `json:"skipped_batches"`
	Truncated         bool `json:"truncated"`
	SnapshotAvailable bool `json:"snapshot_available"`
}

// DashboardData is the full aggregated bundle served to the dashboard.
type DashboardData struct {
	Summary              DashboardSummary     `json:"summary"`
	MinerStats           []MinerStats         `json:"miner_stats"`
	EpochStats           []EpochStats         `json:"epoch_stats"`
	LeadInventory        []DailyLeadInventory `json:"lead_inventory"`
	RejectionReasons     []ReasonCount        `json:"rejection_reasons"`
	RejectionCounts      []ReasonCount        `json:"rejection_counts"`
	IncentiveData        []IncentiveShare     `json:"incentive_data"`
	LeadInventoryCount   LeadInventoryCount   `json:"lead_inventory_count"`
	TotalSubmissionCount int                  `json:"total_submission_count"`
	Meta                 FetchMeta            `json:"meta"`
}

// DashboardResponse is DashboardData plus cache metadata.
type DashboardResponse struct {
	DashboardData
	Hours     int       `json:"hours"`
	FetchedAt time.Time `json:"fetched_at"`
	CachedAt  time.Time `json:"cached_at"`
	Stale     bool      `json:"stale"`
}

// LatestLeadsResponse is returned by the latest leads endpoint.
type LatestLeadsResponse struct {
	Leads     []LatestLead `json:"leads"`
	Count     int          `json:"count"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// LeadSearchResponse is returned by the lead search endpoint.
type LeadSearchResponse struct {
	Results  []LatestLead `json:"results"`
	Total    int          `json:"total"`
	Returned int          `json:"returned"`
}

// JourneyResponse is returned by the lead journey endpoint.
type JourneyResponse struct {
	Entries   []JourneyEntry `json:"entries"`
	Count     int            `json:"count"`
	Hours     int            `json:"hours"`
	FetchedAt time.Time      `json:"fetched_at"`
}
