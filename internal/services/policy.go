package services

import "time"

// Intervention gating and ranking. Pure decision logic; the once-per-day
// guarantee is enforced here rather than by locking.

// ShouldGenerateIntervention decides whether a coaching message is
// warranted for the given recent history. lastInterventionAt, when
// non-nil, suppresses a second intervention on the same calendar day.
func ShouldGenerateIntervention(checkins []CheckinRecord, lastInterventionAt *time.Time, now time.Time) bool {
	if len(checkins) == 0 {
		return false
	}

	if lastInterventionAt != nil && sameDay(*lastInterventionAt, now) {
		return false
	}

	// Engaged users always get one; the mood rules below are only
	// reachable with fewer than 3 check-ins.
	if len(checkins) >= 3 {
		return true
	}

	analytics := BuildMoodAnalytics(checkins, now)
	if analytics.AverageMood <= 2 {
		return true
	}
	if analytics.MoodTrend == TrendDeclining && analytics.AverageMood <= 3 {
		return true
	}

	return false
}

func sameDay(a, b time.Time) bool {
	loc := b.Location()
	return a.In(loc).Format(dayFormat) == b.In(loc).Format(dayFormat)
}

// SelectInterventionTemplate maps a mood average onto the template family.
// Boundaries are inclusive: 2.5 is still compassion, 3.5 still reflection.
func SelectInterventionTemplate(moodAverage float64) InterventionTemplate {
	switch {
	case moodAverage <= 2.5:
		return TemplateCompassion
	case moodAverage <= 3.5:
		return TemplateReflection
	default:
		return TemplateAction
	}
}

// InterventionPriority ranks the urgency of a candidate intervention. The
// score is strictly additive over independent signals and is used only for
// relative ordering; it has no upper bound and is never shown to users.
func InterventionPriority(ctx InterventionContext) int {
	priority := 0

	switch {
	case ctx.MoodAverage <= 2:
		priority += 10
	case ctx.MoodAverage <= 2.5:
		priority += 7
	case ctx.MoodAverage <= 3:
		priority += 4
	}

	switch ctx.MoodTrend {
	case TrendDeclining:
		priority += 5
	case TrendImproving:
		priority += 2
	}

	if ctx.RecentCheckins >= 7 {
		priority += 3
	} else if ctx.RecentCheckins >= 3 {
		priority += 2
	}

	if ctx.StreakDays >= 7 {
		priority += 2
	}

	if ctx.EnergyLevel == EnergyLow && ctx.MoodAverage <= 3 {
		priority += 3
	}

	return priority
}
