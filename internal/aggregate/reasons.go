package aggregate

import (
	"sort"
	"strings"

	"leaddash/internal/models"
)

// excludedReasons are internal failures hidden from rejection charts.
var excludedReasons = []string{
	"llm error",
	"llm_error",
	"no_validation",
	"no validation",
	"validation error",
	"validation_error",
	"unknown",
}

// IsExcludedReason reports whether a category is hidden from charts.
func IsExcludedReason(reason string) bool {
	lower := strings.ToLower(strings.TrimSpace(reason))
	for _, ex := range excludedReasons {
		if strings.Contains(lower, ex) {
			return true
		}
	}
	return false
}

// RejectionReasons builds the chart histogram of REJECTED leads. Excluded
// categories are dropped and percentages are relative to what remains.
func RejectionReasons(leads []models.MergedLead) []models.ReasonCount {
	return reasonHistogram(leads, true)
}

// RejectionCounts is RejectionReasons without the exclusion filter.
func RejectionCounts(leads []models.MergedLead) []models.ReasonCount {
	return reasonHistogram(leads, false)
}

func reasonHistogram(leads []models.MergedLead, filter bool) []models.ReasonCount {
	counts := make(map[string]int)
	total := 0
	for _, lead := range leads {
		if lead.Decision != models.DecisionRejected {
			continue
		}
		reason := lead.RejectionReason
		if reason == "" {
			reason = "Unknown"
		}
		if filter && IsExcludedReason(reason) {
			continue
		}
		counts[reason]++
		total++
	}

	out := make([]models.ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, models.ReasonCount{
			Reason:     reason,
			Count:      count,
			Percentage: Rate(count, total-count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
