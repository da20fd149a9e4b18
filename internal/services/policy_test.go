package services

import (
	"testing"
	"time"
)

func TestShouldGenerateIntervention(t *testing.T) {
	now := analyticsNow

	if ShouldGenerateIntervention(nil, nil, now) {
		t.Fatalf("no check-ins should never trigger")
	}

	// Engaged-user rule: 3 neutral check-ins trigger before any mood rule
	// is consulted.
	neutral := moodSeries(3, 3, 3)
	if !ShouldGenerateIntervention(neutral, nil, now) {
		t.Fatalf("3 check-ins should trigger via the engaged-user rule")
	}

	// Crisis-level low mood with fewer than 3 check-ins.
	if !ShouldGenerateIntervention(moodSeries(1, 2), nil, now) {
		t.Fatalf("average mood <= 2 should trigger")
	}

	// Declining trend needs >= 4 records, so with fewer than 3 check-ins
	// it is unreachable; a mid mood pair therefore does not trigger.
	if ShouldGenerateIntervention(moodSeries(3, 3), nil, now) {
		t.Fatalf("2 neutral check-ins should not trigger")
	}

	// Once-per-day gate.
	earlierToday := now.Add(-2 * time.Hour)
	if ShouldGenerateIntervention(neutral, &earlierToday, now) {
		t.Fatalf("same-day intervention should suppress a second one")
	}
	yesterday := now.AddDate(0, 0, -1)
	if !ShouldGenerateIntervention(neutral, &yesterday, now) {
		t.Fatalf("yesterday's intervention should not suppress today's")
	}
}

func TestSelectInterventionTemplateBoundaries(t *testing.T) {
	cases := []struct {
		avg  float64
		want InterventionTemplate
	}{
		{1.0, TemplateCompassion},
		{2.5, TemplateCompassion},
		{2.6, TemplateReflection},
		{3.5, TemplateReflection},
		{3.6, TemplateAction},
		{5.0, TemplateAction},
	}
	for _, c := range cases {
		if got := SelectInterventionTemplate(c.avg); got != c.want {
			t.Fatalf("SelectInterventionTemplate(%v) = %v, want %v", c.avg, got, c.want)
		}
	}
}

func TestInterventionPriority(t *testing.T) {
	cases := []struct {
		name string
		ctx  InterventionContext
		want int
	}{
		{
			"quiet baseline",
			InterventionContext{MoodAverage: 4, MoodTrend: TrendStable, EnergyLevel: EnergyMid},
			0,
		},
		{
			"crisis declining low energy",
			InterventionContext{MoodAverage: 1.5, MoodTrend: TrendDeclining, EnergyLevel: EnergyLow, RecentCheckins: 7, StreakDays: 10},
			10 + 5 + 3 + 2 + 3,
		},
		{
			"mid mood improving",
			InterventionContext{MoodAverage: 3, MoodTrend: TrendImproving, EnergyLevel: EnergyHigh, RecentCheckins: 3},
			4 + 2 + 2,
		},
		{
			"mood tiers are exclusive",
			InterventionContext{MoodAverage: 2.5, MoodTrend: TrendStable, EnergyLevel: EnergyMid},
			7,
		},
	}
	for _, c := range cases {
		if got := InterventionPriority(c.ctx); got != c.want {
			t.Fatalf("%s: priority = %d, want %d", c.name, got, c.want)
		}
	}
}
