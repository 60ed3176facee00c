package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"leaddash/internal/models"
)

// FetchSubmissions reads SUBMISSION events newer than since. Rows without a
// miner hotkey are dropped.
func (c *Client) FetchSubmissions(ctx context.Context, since *time.Time) ([]models.Submission, FetchStats, error) {
	rows, stats, err := c.Fetch(ctx, models.EventSubmission, since)
	if err != nil {
		return nil, stats, err
	}
	return DecodeSubmissions(rows), stats, nil
}

// FetchConsensus reads CONSENSUS_RESULT events newer than since.
func (c *Client) FetchConsensus(ctx context.Context, since *time.Time) ([]models.Consensus, FetchStats, error) {
	rows, stats, err := c.Fetch(ctx, models.EventConsensusResult, since)
	if err != nil {
		return nil, stats, err
	}
	return DecodeConsensus(rows), stats, nil
}

// DecodeSubmissions converts raw rows into submissions. Payload attributes
// of an unexpected type are ignored; a payload that is not a JSON object is
// treated as empty.
func DecodeSubmissions(rows []models.Event) []models.Submission {
	subs := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		hash := deref(row.EmailHash)
		if hash == "" {
			continue
		}
		p := decodeSubmissionPayload(row.Payload)

		hotkey := deref(row.ActorHotkey)
		if hotkey == "" {
			hotkey = deref(p.MinerHotkey)
		}
		if hotkey == "" {
			continue
		}
		subs = append(subs, models.Submission{
			TS:          row.TS,
			MinerHotkey: hotkey,
			EmailHash:   hash,
			LeadID:      p.LeadID,
		})
	}
	return subs
}

// DecodeConsensus converts raw rows into consensus events. Attributes are
// decoded one by one so a bad attribute only loses itself. A payload that is
// not a JSON object is treated as empty, which yields a PENDING decision.
func DecodeConsensus(rows []models.Event) []models.Consensus {
	out := make([]models.Consensus, 0, len(rows))
	for _, row := range rows {
		hash := deref(row.EmailHash)
		if hash == "" {
			continue
		}
		p := decodeConsensusPayload(row.Payload)

		out = append(out, models.Consensus{
			TS:              row.TS,
			EmailHash:       hash,
			LeadID:          p.LeadID,
			Decision:        p.FinalDecision,
			EpochID:         p.EpochID,
			RepScore:        p.FinalRepScore,
			RejectionReason: p.RejectionReasonText(),
		})
	}
	return out
}

func decodeSubmissionPayload(raw json.RawMessage) models.SubmissionPayload {
	fields := payloadFields(raw)
	return models.SubmissionPayload{
		LeadID:      stringAttr(fields["lead_id"]),
		MinerHotkey: stringAttr(fields["miner_hotkey"]),
	}
}

func decodeConsensusPayload(raw json.RawMessage) models.ConsensusPayload {
	fields := payloadFields(raw)
	p := models.ConsensusPayload{
		LeadID:                 stringAttr(fields["lead_id"]),
		EpochID:                int64Attr(fields["epoch_id"]),
		FinalRepScore:          float64Attr(fields["final_rep_score"]),
		PrimaryRejectionReason: fields["primary_rejection_reason"],
	}
	if d := stringAttr(fields["final_decision"]); d != nil {
		p.FinalDecision = *d
	}
	if n := int64Attr(fields["validator_count"]); n != nil {
		c := int(*n)
		p.ValidatorCount = &c
	}
	return p
}

// payloadFields splits a JSON object into its attributes. Anything else
// yields nil.
func payloadFields(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func stringAttr(v json.RawMessage) *string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return nil
	}
	return &s
}

// numberAttr returns the textual form of a JSON number or of a JSON string
// holding one.
func numberAttr(v json.RawMessage) (string, bool) {
	if len(v) == 0 {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil && n != "" {
		return n.String(), true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	return "", false
}

func int64Attr(v json.RawMessage) *int64 {
	text, ok := numberAttr(v)
	if !ok {
		return nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int64(f)) {
		return nil
	}
	n := int64(f)
	return &n
}

func float64Attr(v json.RawMessage) *float64 {
	text, ok := numberAttr(v)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &f
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
