package services

import (
	"math"
	"sort"
	"time"
)

// Mood analytics over a user's check-in history. All functions are pure:
// they take the full list, tolerate unordered input by re-sorting, and
// return zeroed defaults instead of failing on empty input.

const dayFormat = "2006-01-02"

// sortMostRecentFirst returns a copy of checkins ordered by CreatedAt
// descending, the canonical history order all analytics assume.
func sortMostRecentFirst(checkins []CheckinRecord) []CheckinRecord {
	out := make([]CheckinRecord, len(checkins))
	copy(out, checkins)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// MoodAverage is the mean mood over the most recent limit check-ins,
// rounded to one decimal place. An empty history yields the neutral
// default 3, which is what the intervention-trigger context expects;
// dashboard-style aggregates use BuildMoodAnalytics, whose empty default
// is 0.
func MoodAverage(checkins []CheckinRecord, limit int) float64 {
	if len(checkins) == 0 {
		return 3
	}
	recent := sortMostRecentFirst(checkins)
	if limit > 0 && limit < len(recent) {
		recent = recent[:limit]
	}
	total := 0
	for _, c := range recent {
		total += c.MoodScore
	}
	return round1(float64(total) / float64(len(recent)))
}

// MoodTrendOf compares the mean mood of the newer half of the history
// against the older half. Fewer than 4 records is always stable. The list
// is split at floor(n/2): the first half of the most-recent-first order is
// "recent", and for odd lengths the extra record lands in the older half.
func MoodTrendOf(checkins []CheckinRecord) Trend {
	if len(checkins) < 4 {
		return TrendStable
	}

	sorted := sortMostRecentFirst(checkins)
	mid := len(sorted) / 2
	recentHalf := sorted[:mid]
	olderHalf := sorted[mid:]

	recentAvg := meanMood(recentHalf)
	olderAvg := meanMood(olderHalf)

	difference := recentAvg - olderAvg
	if difference > 0.3 {
		return TrendImproving
	}
	if difference < -0.3 {
		return TrendDeclining
	}
	return TrendStable
}

func meanMood(checkins []CheckinRecord) float64 {
	if len(checkins) == 0 {
		return 0
	}
	total := 0
	for _, c := range checkins {
		total += c.MoodScore
	}
	return float64(total) / float64(len(checkins))
}

// EnergyDistributionOf counts each bucket and converts to integer percent.
// Buckets round independently, so the three values may not sum to 100.
func EnergyDistributionOf(checkins []CheckinRecord) EnergyDistribution {
	if len(checkins) == 0 {
		return EnergyDistribution{}
	}

	var low, mid, high int
	for _, c := range checkins {
		switch c.EnergyLevel {
		case EnergyLow:
			low++
		case EnergyMid:
			mid++
		case EnergyHigh:
			high++
		}
	}

	total := float64(len(checkins))
	pct := func(n int) int { return int(math.Round(float64(n) / total * 100)) }
	return EnergyDistribution{Low: pct(low), Mid: pct(mid), High: pct(high)}
}

// StreakDays counts consecutive calendar days with at least one check-in,
// walking backwards from the most recent check-in day. The streak is 0
// unless that day is today or yesterday relative to now. Multiple
// check-ins on the same day collapse to a single day. Dates are taken in
// now's location.
func StreakDays(checkins []CheckinRecord, now time.Time) int {
	if len(checkins) == 0 {
		return 0
	}

	loc := now.Location()
	daySet := map[string]bool{}
	for _, c := range checkins {
		daySet[c.CreatedAt.In(loc).Format(dayFormat)] = true
	}
	days := make([]string, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	today := now.Format(dayFormat)
	yesterday := now.AddDate(0, 0, -1).Format(dayFormat)
	if days[0] != today && days[0] != yesterday {
		return 0
	}

	streak := 1
	current, _ := time.ParseInLocation(dayFormat, days[0], loc)
	for _, d := range days[1:] {
		expected := current.AddDate(0, 0, -1).Format(dayFormat)
		if d != expected {
			break
		}
		streak++
		current, _ = time.ParseInLocation(dayFormat, d, loc)
	}
	return streak
}

// BuildMoodAnalytics derives the full analytics summary from a check-in
// history. The average covers the 7 most recent check-ins; trend,
// distribution, and streak cover the whole list. Empty input yields
// all-zero analytics with a stable trend, never an error.
func BuildMoodAnalytics(checkins []CheckinRecord, now time.Time) MoodAnalytics {
	if len(checkins) == 0 {
		return MoodAnalytics{MoodTrend: TrendStable}
	}
	return MoodAnalytics{
		AverageMood:        MoodAverage(checkins, 7),
		MoodTrend:          MoodTrendOf(checkins),
		EnergyDistribution: EnergyDistributionOf(checkins),
		TotalCheckins:      len(checkins),
		StreakDays:         StreakDays(checkins, now),
	}
}
