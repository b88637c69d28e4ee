package domain

import "time"

// Period is a named lookback window for analytics queries.
type Period string

// Supported periods.
const (
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	Period90Days Period = "90d"
)

// DefaultPeriod is used for empty or unrecognized period strings.
const DefaultPeriod = Period30Days

// RecentWindowDays bounds the dashboard's recent scan count and the
// per-code detail series, independent of any requested period.
const RecentWindowDays = 30

// ParsePeriod normalizes s to a supported period. It never fails.
func ParsePeriod(s string) Period {
	p := Period(s)
	if p.Valid() {
		return p
	}
	return DefaultPeriod
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	switch p {
	case Period7Days, Period30Days, Period90Days:
		return true
	default:
		return false
	}
}

// Days returns the length of the window in whole days.
func (p Period) Days() int {
	switch p {
	case Period7Days:
		return 7
	case Period90Days:
		return 90
	default:
		return 30
	}
}

// Since returns the inclusive window start relative to now.
func (p Period) Since(now time.Time) time.Time {
	return DaysAgo(now, p.Days())
}

// DaysAgo returns now minus days*24h.
func DaysAgo(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
