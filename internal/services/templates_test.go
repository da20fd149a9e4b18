package services

import (
	"strings"
	"testing"
)

func TestFallbackMessageAlwaysValid(t *testing.T) {
	contexts := []InterventionContext{
		{MoodAverage: 1.5, MoodTrend: TrendDeclining, EnergyLevel: EnergyLow, StreakDays: 0},
		{MoodAverage: 2.0, MoodTrend: TrendStable, EnergyLevel: EnergyMid, StreakDays: 4},
		{MoodAverage: 3.0, MoodTrend: TrendImproving, EnergyLevel: EnergyLow, StreakDays: 1},
		{MoodAverage: 3.4, MoodTrend: TrendStable, EnergyLevel: EnergyHigh, StreakDays: 0},
		{MoodAverage: 4.2, MoodTrend: TrendImproving, EnergyLevel: EnergyHigh, StreakDays: 12},
		{MoodAverage: 4.8, MoodTrend: TrendStable, EnergyLevel: EnergyMid, StreakDays: 2},
	}
	templates := []InterventionTemplate{TemplateCompassion, TemplateReflection, TemplateAction}
	for _, tpl := range templates {
		for _, ctx := range contexts {
			msg := FallbackMessage(tpl, ctx)
			if !ValidateMessage(msg) {
				t.Fatalf("fallback %s invalid for %+v: %+v", tpl, ctx, msg)
			}
		}
	}
}

func TestFallbackMessageDeterministic(t *testing.T) {
	ctx := InterventionContext{MoodAverage: 2.1, MoodTrend: TrendDeclining, EnergyLevel: EnergyLow, StreakDays: 3}
	a := FallbackMessage(TemplateCompassion, ctx)
	b := FallbackMessage(TemplateCompassion, ctx)
	if a != b {
		t.Fatalf("fallback not deterministic: %+v vs %+v", a, b)
	}
	if !strings.Contains(a.Body, "3-day") {
		t.Fatalf("expected streak clause in body: %q", a.Body)
	}
}

func TestFallbackMessageActionMentionsAverage(t *testing.T) {
	ctx := InterventionContext{MoodAverage: 4.2, MoodTrend: TrendImproving, EnergyLevel: EnergyHigh, StreakDays: 8}
	msg := FallbackMessage(TemplateAction, ctx)
	if !strings.Contains(msg.Body, "4.2") {
		t.Fatalf("expected mood average in body: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "8-day streak") {
		t.Fatalf("expected streak clause: %q", msg.Body)
	}
}

func TestEnhanceWithPersonalityPriorityOrder(t *testing.T) {
	base := InterventionMessage{Title: "t", Body: "base.", CTAText: "go"}

	// All compassion thresholds met at once: neuroticism wins.
	traits := &BigFiveScores{Neuroticism: 0.9, Agreeableness: 0.9, Conscientiousness: 0.9}
	got := EnhanceWithPersonality(base, traits, TemplateCompassion)
	if !strings.Contains(got.Body, "sensitivity is also a strength") {
		t.Fatalf("expected neuroticism clause, got %q", got.Body)
	}
	if strings.Count(got.Body, ".")-strings.Count(base.Body, ".") != 1 {
		t.Fatalf("expected exactly one appended sentence, got %q", got.Body)
	}

	// Only the second rule triggers.
	traits = &BigFiveScores{Neuroticism: 0.2, Agreeableness: 0.8}
	got = EnhanceWithPersonality(base, traits, TemplateCompassion)
	if !strings.Contains(got.Body, "caring nature") {
		t.Fatalf("expected agreeableness clause, got %q", got.Body)
	}
}

func TestEnhanceWithPersonalityNoTraitsOrNoTrigger(t *testing.T) {
	base := InterventionMessage{Title: "t", Body: "base.", CTAText: "go"}
	if got := EnhanceWithPersonality(base, nil, TemplateAction); got != base {
		t.Fatalf("nil traits should leave message unchanged")
	}
	// Mid-range traits trigger nothing.
	traits := &BigFiveScores{Extraversion: 0.5, Agreeableness: 0.5, Conscientiousness: 0.5, Neuroticism: 0.5, Openness: 0.5}
	if got := EnhanceWithPersonality(base, traits, TemplateCompassion); got != base {
		t.Fatalf("mid-range traits should leave message unchanged, got %+v", got)
	}
}

func TestEnhanceWithPersonalityReflectionLowExtraversion(t *testing.T) {
	base := InterventionMessage{Title: "t", Body: "base.", CTAText: "go"}
	traits := &BigFiveScores{Extraversion: 0.2, Openness: 0.5, Conscientiousness: 0.5}
	got := EnhanceWithPersonality(base, traits, TemplateReflection)
	if !strings.Contains(got.Body, "quiet time for introspection") {
		t.Fatalf("expected introversion clause, got %q", got.Body)
	}
}

func TestValidateMessageLimits(t *testing.T) {
	ok := InterventionMessage{Title: "t", Body: "b", CTAText: "c"}
	if !ValidateMessage(ok) {
		t.Fatalf("minimal message should validate")
	}
	cases := []InterventionMessage{
		{Title: "", Body: "b", CTAText: "c"},
		{Title: "t", Body: "", CTAText: "c"},
		{Title: "t", Body: "b", CTAText: ""},
		{Title: strings.Repeat("x", 101), Body: "b", CTAText: "c"},
		{Title: "t", Body: strings.Repeat("x", 501), CTAText: "c"},
		{Title: "t", Body: "b", CTAText: strings.Repeat("x", 51)},
	}
	for i, c := range cases {
		if ValidateMessage(c) {
			t.Fatalf("case %d should fail validation: %+v", i, c)
		}
	}
	// Limits are rune counts, not byte counts.
	unicodeTitle := strings.Repeat("気", 100)
	if !ValidateMessage(InterventionMessage{Title: unicodeTitle, Body: "b", CTAText: "c"}) {
		t.Fatalf("100-rune title should validate")
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	ctx := InterventionContext{
		MoodAverage:    2.0,
		MoodTrend:      TrendDeclining,
		EnergyLevel:    EnergyLow,
		FreeText:       "rough week",
		RecentCheckins: 5,
		StreakDays:     2,
		PersonalityTraits: &BigFiveScores{
			Extraversion: 0.25, Agreeableness: 0.5, Conscientiousness: 0.75, Neuroticism: 0.9, Openness: 0.1,
		},
	}
	prompt := BuildPrompt(TemplateCompassion, ctx)
	for _, want := range []string{"2.0/5 (low)", "declining", "rough week", "Neuroticism: 0.90", "COMPASSION", `"cta_text"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
