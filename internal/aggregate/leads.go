package aggregate

import (
	"leaddash/internal/models"
	"leaddash/internal/rejection"
)

// Limits for the latest leads table.
const (
	LatestScanSize = 150
	LatestLimit    = 100
)

const shortHashLen = 16

// LatestLeads joins the newest consensus events to their submissions. cons
// and subs must be ordered newest first. Only the first LatestScanSize
// consensus events are scanned, leads of inactive miners are skipped and at
// most limit leads are returned.
func LatestLeads(cons []models.Consensus, subs []models.Submission, snapshot *models.Snapshot, limit int) []models.LatestLead {
	if limit <= 0 {
		limit = LatestLimit
	}
	if len(cons) > LatestScanSize {
		cons = cons[:LatestScanSize]
	}

	wanted := make(map[string]struct{}, len(cons))
	for _, c := range cons {
		wanted[c.EmailHash] = struct{}{}
	}
	bySub := make(map[string]models.Submission, len(cons))
	for _, s := range subs {
		if _, ok := wanted[s.EmailHash]; !ok {
			continue
		}
		if _, seen := bySub[s.EmailHash]; !seen {
			bySub[s.EmailHash] = s
		}
	}

	active := snapshot.ActiveMiners()
	leads := make([]models.LatestLead, 0, limit)
	for _, c := range cons {
		if len(leads) >= limit {
			break
		}
		s, found := bySub[c.EmailHash]
		if active != nil {
			if _, ok := active[s.MinerHotkey]; !ok {
				continue
			}
		}

		lead := models.LatestLead{
			EmailHash:   c.EmailHash,
			MinerHotkey: s.MinerHotkey,
			LeadID:      c.LeadID,
			Timestamp:   c.TS,
			EpochID:     c.EpochID,
			Decision:    models.NormalizeDecision(c.Decision),
			RepScore:    c.RepScore,
		}
		if found {
			lead.Timestamp = s.TS
			if lead.LeadID == nil {
				lead.LeadID = s.LeadID
			}
		}
		if uid, ok := snapshot.UID(s.MinerHotkey); ok {
			lead.UID = &uid
		}
		if c.RejectionReason != nil && *c.RejectionReason != "" {
			reason := rejection.Normalize(*c.RejectionReason)
			lead.RejectionReason = &reason
		}
		leads = append(leads, lead)
	}
	return leads
}

// Journey converts merged leads into submissions tab entries.
func Journey(leads []models.MergedLead) []models.JourneyEntry {
	entries := make([]models.JourneyEntry, 0, len(leads))
	for _, lead := range leads {
		short := lead.EmailHash
		if len(short) > shortHashLen {
			short = short[:shortHashLen]
		}
		entries = append(entries, models.JourneyEntry{
			EmailHash:       lead.EmailHash,
			EmailHashShort:  short + "...",
			MinerHotkey:     lead.MinerHotkey,
			Timestamp:       lead.Timestamp,
			EpochID:         lead.EpochID,
			Decision:        lead.Decision,
			RepScore:        lead.RepScore,
			RejectionReason: lead.RejectionReason,
			LeadID:          lead.LeadID,
		})
	}
	return entries
}
