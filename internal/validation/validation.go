package validation

import (
	"slices"
	"strconv"
	"strings"
)

// Lead search limits.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// ParseWindow parses a time window in hours. Anything that is not one of the
// allowed presets falls back to 0 (all time).
func ParseWindow(raw string, allowed []int) int {
	hours, ok := ValidateWindow(raw, allowed)
	if !ok {
		return 0
	}
	return hours
}

// ValidateWindow reports whether raw is one of the allowed windows.
func ValidateWindow(raw string, allowed []int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if !slices.Contains(allowed, hours) {
		return 0, false
	}
	return hours, true
}

// ParseLimit parses a result limit. Missing or invalid values use
// DefaultLimit and large values are capped at MaxLimit.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
